package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	user, err := h.auth.Register(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered successfully", user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "User logged in successfully", token)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	user, err := h.auth.Me(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "User data retrieved successfully", user)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	token, err := h.auth.RefreshIdentity(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "Token refreshed successfully", token)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	if err := h.auth.RevokeIdentity(r.Context(), id); err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "User logged out successfully", nil)
}
