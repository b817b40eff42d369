package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/orders"
)

// FormatOrderNumber renders seq as the prefix followed by at least five
// digits. Sequences past 99999 simply get longer.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%s%05d", common.OrderNumberPrefix, seq)
}

// ParseOrderNumber extracts the numeric suffix of an order number.
func ParseOrderNumber(number string) (int64, error) {
	digits, ok := strings.CutPrefix(number, common.OrderNumberPrefix)
	if !ok || digits == "" {
		return 0, common.ErrInvalidOrderNumber
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, common.ErrInvalidOrderNumber
		}
	}

	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidOrderNumber
	}
	return seq, nil
}

// NextOrderNumber returns the number following the largest one stored, or
// the first number when there are no orders. repo should be bound to the
// transaction that will insert the order.
func NextOrderNumber(ctx context.Context, repo orders.Repository) (string, error) {
	max, err := repo.MaxSequence(ctx, common.OrderNumberPrefix)
	if err != nil {
		return "", fmt.Errorf("error reading order sequence: %w", err)
	}
	return FormatOrderNumber(max + 1), nil
}
