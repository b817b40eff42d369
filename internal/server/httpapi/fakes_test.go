package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/stretchr/testify/require"
)

const validToken = "valid-token"

var testIdentity = &auth.Identity{UserID: 7, TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

type fakeAuth struct {
	authenticate func(ctx context.Context, token string) (*auth.Identity, error)
	register func(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	login    func(ctx context.Context, email, password string) (*services.Token, error)
	refresh  func(ctx context.Context, id *auth.Identity) (*services.Token, error)
	revoke   func(ctx context.Context, id *auth.Identity) error
	me       func(ctx context.Context, id *auth.Identity) (*models.User, error)
}

func (f *fakeAuth) Register(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
	return f.register(ctx, in)
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.Token, error) {
	return f.login(ctx, email, password)
}

// Authenticate accepts only validToken unless authenticate is set.
func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	if f.authenticate != nil {
		return f.authenticate(ctx, token)
	}
	if token != validToken {
		return nil, common.ErrUnauthenticated
	}
	return testIdentity, nil
}

func (f *fakeAuth) RefreshIdentity(ctx context.Context, id *auth.Identity) (*services.Token, error) {
	return f.refresh(ctx, id)
}

func (f *fakeAuth) RevokeIdentity(ctx context.Context, id *auth.Identity) error {
	return f.revoke(ctx, id)
}

func (f *fakeAuth) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	return f.me(ctx, id)
}

type fakeUsers struct {
	list   func(ctx context.Context, page, perPage int) (*models.Page[models.User], error)
	get    func(ctx context.Context, id int64) (*models.User, error)
	create func(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	update func(ctx context.Context, id int64, in services.UpdateUserInput) (*models.User, error)
	delete func(ctx context.Context, id int64) error
}

func (f *fakeUsers) List(ctx context.Context, page, perPage int) (*models.Page[models.User], error) {
	return f.list(ctx, page, perPage)
}

func (f *fakeUsers) Get(ctx context.Context, id int64) (*models.User, error) {
	return f.get(ctx, id)
}

func (f *fakeUsers) Create(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
	return f.create(ctx, in)
}

func (f *fakeUsers) Update(ctx context.Context, id int64, in services.UpdateUserInput) (*models.User, error) {
	return f.update(ctx, id, in)
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error {
	return f.delete(ctx, id)
}

type fakeOrders struct {
	list   func(ctx context.Context, page, perPage int) (*models.Page[models.Order], error)
	get    func(ctx context.Context, id int64) (*models.Order, error)
	create func(ctx context.Context, userID int64, totalAmount float64) (*models.Order, error)
	update func(ctx context.Context, id int64, totalAmount float64) (*models.Order, error)
	delete func(ctx context.Context, id int64) error
}

func (f *fakeOrders) List(ctx context.Context, page, perPage int) (*models.Page[models.Order], error) {
	return f.list(ctx, page, perPage)
}

func (f *fakeOrders) Get(ctx context.Context, id int64) (*models.Order, error) {
	return f.get(ctx, id)
}

func (f *fakeOrders) Create(ctx context.Context, userID int64, totalAmount float64) (*models.Order, error) {
	return f.create(ctx, userID, totalAmount)
}

func (f *fakeOrders) Update(ctx context.Context, id int64, totalAmount float64) (*models.Order, error) {
	return f.update(ctx, id, totalAmount)
}

func (f *fakeOrders) Delete(ctx context.Context, id int64) error {
	return f.delete(ctx, id)
}

type testServer struct {
	auth   *fakeAuth
	users  *fakeUsers
	orders *fakeOrders
	opts   Options
}

func newTestServer() *testServer {
	return &testServer{
		auth:   &fakeAuth{},
		users:  &fakeUsers{},
		orders: &fakeOrders{},
		opts:   Options{DefaultPageSize: 10, MaxPageSize: 50},
	}
}

func (s *testServer) handler() http.Handler {
	h := NewHandler(s.auth, s.users, s.orders, nopLogger(), s.opts)
	return NewRouter(h, metrics.New())
}

type response struct {
	Code int
	Body testEnvelope
	Raw  map[string]any
}

type testEnvelope struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Meta    *models.PageMeta    `json:"meta"`
	Errors  map[string][]string `json:"errors"`
	Error   string              `json:"error"`
}

// do sends body (a string or a value to marshal) and decodes the envelope.
// token is sent as a bearer token when not empty.
func (s *testServer) do(t *testing.T, method, path string, body any, token string) response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, req)

	res := response{Code: rec.Code}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.Raw))
	return res
}

func sampleUser() *models.User {
	return &models.User{
		ID:               7,
		Name:             "Jane",
		Email:            "jane@example.com",
		PasswordHash:     "$2a$hash",
		Age:              30,
		MembershipStatus: true,
		Orders:           []models.Order{},
	}
}

func sampleOrder(number string, amount float64) *models.Order {
	return &models.Order{ID: 1, OrderNumber: number, TotalAmount: amount, UserID: 7}
}

func newRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	return serveWith(s.handler(), req)
}

func serveWith(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
