// Package httpapi exposes the REST API. Handlers decode and validate the
// request, call a service and write the response envelope.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type AuthService interface {
	Register(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.Token, error)
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
	RefreshIdentity(ctx context.Context, id *auth.Identity) (*services.Token, error)
	RevokeIdentity(ctx context.Context, id *auth.Identity) error
	Me(ctx context.Context, id *auth.Identity) (*models.User, error)
}

type UserService interface {
	List(ctx context.Context, page, perPage int) (*models.Page[models.User], error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id int64, in services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type OrderService interface {
	List(ctx context.Context, page, perPage int) (*models.Page[models.Order], error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	Create(ctx context.Context, userID int64, totalAmount float64) (*models.Order, error)
	Update(ctx context.Context, id int64, totalAmount float64) (*models.Order, error)
	Delete(ctx context.Context, id int64) error
}

// Options tunes response behaviour.
type Options struct {
	ExposeInternalErrors bool
	DefaultPageSize      int
	MaxPageSize          int
}

type Handler struct {
	auth     AuthService
	users    UserService
	orders   OrderService
	log      logging.Logger
	validate *validator.Validate

	exposeErrors   bool
	defaultPerPage int
	maxPerPage     int
}

func NewHandler(a AuthService, u UserService, o OrderService, log logging.Logger, opts Options) *Handler {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}

	return &Handler{
		auth:           a,
		users:          u,
		orders:         o,
		log:            log.With("module", "httpapi"),
		validate:       newValidator(),
		exposeErrors:   opts.ExposeInternalErrors,
		defaultPerPage: opts.DefaultPageSize,
		maxPerPage:     opts.MaxPageSize,
	}
}

// pagination reads page and per_page. Garbage falls back to the defaults and
// per_page is capped.
func (h *Handler) pagination(r *http.Request) (page, perPage int) {
	q := r.URL.Query()

	page = 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	perPage = h.defaultPerPage
	if pp, err := strconv.Atoi(q.Get("per_page")); err == nil && pp > 0 {
		perPage = pp
	}
	if perPage > h.maxPerPage {
		perPage = h.maxPerPage
	}

	return page, perPage
}

// pathID returns the {id} route parameter; ok is false when it is not a
// positive integer.
func pathID(r *http.Request) (id int64, ok bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusNotFound, MsgNotFound)
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}
