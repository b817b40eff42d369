package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/config"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/orders"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/users"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
}

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		BcryptCost:                  bcrypt.MinCost,
		OrderNumberRetries:          3,
	}
}

func uniqueViolation(constraint string) error {
	return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
}

// --- fake users repository ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.User

	getErr    error
	createErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{rows: map[int64]models.User{}}
}

func (f *fakeUsersRepo) seed(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.rows[u.ID] = u
	return &u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.seed(*u), nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) sorted() []models.User {
	out := make([]models.User, 0, len(f.rows))
	for _, u := range f.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeUsersRepo) GetByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []models.User{}
	for _, u := range f.sorted() {
		if want[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsersRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted()
	if offset >= len(all) {
		return []models.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	u.UpdatedAt = time.Now()
	f.rows[u.ID] = *u
	return u, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

// --- fake orders repository ---

type fakeOrdersRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Order

	// conflicts makes the next Create calls lose a race: a competing order
	// takes the generated number and a unique violation is returned.
	conflicts int
	createErr error
	maxErr    error
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{rows: map[int64]models.Order{}}
}

func (f *fakeOrdersRepo) insert(o models.Order) *models.Order {
	f.nextID++
	o.ID = f.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	f.rows[o.ID] = o
	return &o
}

func (f *fakeOrdersRepo) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.rows {
		if existing.OrderNumber == o.OrderNumber {
			return nil, uniqueViolation(orders.NumberConstraint)
		}
	}
	if f.conflicts > 0 {
		f.conflicts--
		f.insert(models.Order{OrderNumber: o.OrderNumber, TotalAmount: 1, UserID: 999})
		return nil, uniqueViolation(orders.NumberConstraint)
	}
	return f.insert(*o), nil
}

func (f *fakeOrdersRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &o, nil
}

func (f *fakeOrdersRepo) sorted() []models.Order {
	out := make([]models.Order, 0, len(f.rows))
	for _, o := range f.rows {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeOrdersRepo) List(ctx context.Context, limit, offset int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted()
	if offset >= len(all) {
		return []models.Order{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeOrdersRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeOrdersRepo) ListByUserIDs(ctx context.Context, ids []int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []models.Order{}
	for _, o := range f.sorted() {
		if want[o.UserID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrdersRepo) UpdateAmount(ctx context.Context, id int64, amount float64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	o.TotalAmount = amount
	o.UpdatedAt = time.Now()
	f.rows[id] = o
	return &o, nil
}

func (f *fakeOrdersRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeOrdersRepo) MaxSequence(ctx context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maxErr != nil {
		return 0, f.maxErr
	}
	var max int64
	for _, o := range f.rows {
		if n, err := ParseOrderNumber(o.OrderNumber); err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

// --- fake revoked tokens repository ---

type fakeRevokedRepo struct {
	mu        sync.Mutex
	rows      map[string]models.RevokedToken
	purged    int
	existsErr error
}

func newFakeRevokedRepo() *fakeRevokedRepo {
	return &fakeRevokedRepo{rows: map[string]models.RevokedToken{}}
}

func (f *fakeRevokedRepo) Create(ctx context.Context, t *models.RevokedToken) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[t.TokenID]; ok {
		return false, nil
	}
	f.rows[t.TokenID] = *t
	return true, nil
}

func (f *fakeRevokedRepo) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeRevokedRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.rows {
		if t.ExpiresAt.Before(before) {
			delete(f.rows, id)
			n++
		}
	}
	f.purged += int(n)
	return n, nil
}

// --- fake repository manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	o *fakeOrdersRepo
	r *fakeRevokedRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), o: newFakeOrdersRepo(), r: newFakeRevokedRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) Orders(db dbx.DBTX) orders.Repository               { return m.o }
func (m *fakeRepoManager) RevokedTokens(db dbx.DBTX) revokedtokens.Repository { return m.r }

// --- fake publisher ---

type published struct {
	key string
	msg any
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{key: key, msg: v})
	return p.err
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, s := range p.sent {
		out[i] = s.key
	}
	return out
}
