package httpapi

import (
	"fmt"
	"math"
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
)

// total_amount is NUMERIC(15,2).
const (
	maxAmountCents = 999999999999999
	maxAmount      = "9999999999999.99"
)

// amount validates the request and extracts total_amount.
func (h *Handler) amount(r *http.Request) (float64, error) {
	var req orderRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		return 0, err
	}

	v := common.NewValidationError()
	if req.TotalAmount == nil {
		v.Add("total_amount", "The total amount field is required.")
		return 0, v
	}

	total, ok := numeric(req.TotalAmount)
	if !ok {
		v.Add("total_amount", "The total amount field must be a number.")
		return 0, v
	}
	if math.Abs(math.Round(total*100)) > maxAmountCents {
		v.Add("total_amount", fmt.Sprintf("The total amount field must be between -%[1]s and %[1]s.", maxAmount))
		return 0, v
	}
	return total, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, perPage := h.pagination(r)

	res, err := h.orders.List(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	writePage(w, "Orders retrieved successfully", res)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, MsgOrderNotFound)
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "Order retrieved successfully", order)
}

// createOrder places the order on behalf of the caller.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	total, err := h.amount(r)
	if err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	order, err := h.orders.Create(r.Context(), id.UserID, total)
	if err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	writeSuccess(w, http.StatusCreated, "Order created successfully", order)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, MsgOrderNotFound)
		return
	}

	total, err := h.amount(r)
	if err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	order, err := h.orders.Update(r.Context(), id, total)
	if err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "Order updated successfully", order)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, MsgOrderNotFound)
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, MsgOrderNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "Order deleted successfully", nil)
}
