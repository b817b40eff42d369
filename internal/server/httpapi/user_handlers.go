package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := h.pagination(r)

	res, err := h.users.List(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writePage(w, "Users retrieved successfully", res)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, MsgUserNotFound)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "User retrieved successfully", user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	var req createUserRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	user, err := h.users.Create(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusCreated, "User created successfully", user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, MsgUserNotFound)
		return
	}

	var req updateUserRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	user, err := h.users.Update(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "User updated successfully", user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, MsgUserNotFound)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, MsgUserNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
}
