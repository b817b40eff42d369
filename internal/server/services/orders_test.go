package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/events"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderService(t *testing.T) (*OrderService, *fakeRepoManager, *fakePublisher, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	pub := &fakePublisher{}
	return NewOrderService(db, rm, pub, testConfig(), nopLogger(), nil), rm, pub, mock
}

func TestOrderCreate_SequentialNumbers(t *testing.T) {
	s, _, pub, mock := newOrderService(t)
	expectCommit(mock, 2)

	first, err := s.Create(context.Background(), 1, 100000)
	require.NoError(t, err)
	assert.Equal(t, "DT00001", first.OrderNumber)
	assert.Equal(t, int64(1), first.UserID)
	assert.Equal(t, 100000.0, first.TotalAmount)

	second, err := s.Create(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "DT00002", second.OrderNumber)

	assert.Equal(t, []string{events.OrderCreated, events.OrderCreated}, pub.keys())
	ev, ok := pub.sent[1].msg.(events.Event[events.OrderPayload])
	require.True(t, ok)
	assert.Equal(t, "DT00002", ev.Payload.OrderNumber)
}

func TestOrderCreate_RetriesOnNumberConflict(t *testing.T) {
	s, rm, _, mock := newOrderService(t)
	rm.o.conflicts = 1
	expectRollback(mock, 1)
	expectCommit(mock, 1)

	got, err := s.Create(context.Background(), 1, 10)
	require.NoError(t, err)
	// the competing writer took DT00001
	assert.Equal(t, "DT00002", got.OrderNumber)
}

func TestOrderCreate_GivesUpAfterRetries(t *testing.T) {
	s, rm, pub, mock := newOrderService(t)
	rm.o.conflicts = 10
	expectRollback(mock, 3)

	_, err := s.Create(context.Background(), 1, 10)
	assert.ErrorIs(t, err, common.ErrOrderNumberUnavailable)
	assert.Empty(t, pub.keys())
}

func TestOrderCreate_OtherErrorsAreNotRetried(t *testing.T) {
	s, rm, _, mock := newOrderService(t)
	rm.o.createErr = errors.New("db down")
	expectRollback(mock, 1)

	_, err := s.Create(context.Background(), 1, 10)
	assert.ErrorContains(t, err, "db down")
}

func TestOrderCreate_SequenceReadFails(t *testing.T) {
	s, rm, _, mock := newOrderService(t)
	rm.o.maxErr = errors.New("db down")
	expectRollback(mock, 1)

	_, err := s.Create(context.Background(), 1, 10)
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, rm.o.rows)
}

func TestOrderCreate_PublishFailureIsNotFatal(t *testing.T) {
	s, _, pub, mock := newOrderService(t)
	pub.err = errors.New("broker down")
	expectCommit(mock, 1)

	got, err := s.Create(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "DT00001", got.OrderNumber)
}

func TestOrderUpdate(t *testing.T) {
	s, rm, pub, mock := newOrderService(t)
	o := rm.o.insert(models.Order{OrderNumber: "DT00001", TotalAmount: 1, UserID: 1})

	expectCommit(mock, 1)
	got, err := s.Update(context.Background(), o.ID, 250.5)
	require.NoError(t, err)
	assert.Equal(t, 250.5, got.TotalAmount)
	assert.Equal(t, "DT00001", got.OrderNumber)
	assert.Equal(t, []string{events.OrderUpdated}, pub.keys())

	expectRollback(mock, 1)
	_, err = s.Update(context.Background(), 404, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestOrderDelete(t *testing.T) {
	s, rm, pub, mock := newOrderService(t)
	o := rm.o.insert(models.Order{OrderNumber: "DT00001", UserID: 1})

	expectCommit(mock, 1)
	require.NoError(t, s.Delete(context.Background(), o.ID))
	assert.Equal(t, []string{events.OrderDeleted}, pub.keys())

	expectRollback(mock, 1)
	assert.ErrorIs(t, s.Delete(context.Background(), o.ID), common.ErrorNotFound)

	_, err := s.Get(context.Background(), o.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestOrderGetAndList_WithOwner(t *testing.T) {
	s, rm, _, _ := newOrderService(t)
	u := rm.u.seed(models.User{Name: "Owner", Email: "o@example.com"})
	rm.o.insert(models.Order{OrderNumber: "DT00001", UserID: u.ID})
	rm.o.insert(models.Order{OrderNumber: "DT00002", UserID: u.ID})

	got, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Owner", got.User.Name)

	page, err := s.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Owner", page.Items[1].User.Name)
	assert.Equal(t, int64(2), page.Meta.Total)
	assert.Equal(t, 1, page.Meta.LastPage)
}
