package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Response messages.
const (
	MsgValidation         = "Validation error"
	MsgUnauthenticated    = "Unauthenticated"
	MsgInvalidCredentials = "Invalid email or password."
	MsgUserNotFound       = "User not found"
	MsgOrderNotFound      = "Order not found"
	MsgInternal           = "Something went wrong"
	MsgNotFound           = "Not found"
	MsgMethodNotAllowed   = "Method not allowed"
)

// envelope is the body of every response.
type envelope struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Meta    *models.PageMeta    `json:"meta,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: true, Message: message, Data: data})
}

func writePage[T any](w http.ResponseWriter, message string, page *models.Page[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, envelope{Status: true, Message: message, Data: items, Meta: &page.Meta})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: false, Message: message})
}

func writeValidation(w http.ResponseWriter, v *common.ValidationError) {
	writeJSON(w, http.StatusBadRequest, envelope{Status: false, Message: MsgValidation, Errors: v.Fields})
}

// fail maps a service error to a response. notFound is the message used for
// common.ErrorNotFound.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var v *common.ValidationError
	switch {
	case errors.As(err, &v):
		writeValidation(w, v)
	case errors.Is(err, common.ErrInvalidCredentials):
		writeFailure(w, http.StatusUnauthorized, MsgInvalidCredentials)
	case errors.Is(err, common.ErrUnauthenticated):
		writeFailure(w, http.StatusUnauthorized, MsgUnauthenticated)
	case errors.Is(err, common.ErrorNotFound):
		writeFailure(w, http.StatusNotFound, notFound)
	default:
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body := envelope{Status: false, Message: MsgInternal}
		if h.exposeErrors {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}
