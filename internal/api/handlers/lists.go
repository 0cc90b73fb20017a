package handlers

import (
	"net/http"

	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/lists"
)

// ListsHandler handles shopping and task lists.
type ListsHandler struct {
	lists *lists.Service
}

// NewListsHandler creates a new lists handler.
func NewListsHandler(l *lists.Service) *ListsHandler {
	return &ListsHandler{lists: l}
}

// List handles GET /api/lists
func (h *ListsHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.lists.Lists(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list lists")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(out))
}

// Create handles POST /api/lists
func (h *ListsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var l domain.List
	if !decode(w, r, &l) {
		return
	}
	created, err := h.lists.Create(r.Context(), userID(r), l)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create list")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Delete handles DELETE /api/lists/{id}. The list's items go with it.
func (h *ListsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Items handles GET /api/lists/{id}/items
func (h *ListsHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.lists.Items(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list items")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(items))
}

// AddItem handles POST /api/lists/{id}/items
func (h *ListsHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var it domain.ListItem
	if !decode(w, r, &it) {
		return
	}
	created, err := h.lists.AddItem(r.Context(), userID(r), r.PathValue("id"), it)
	if err != nil {
		writeServiceError(w, r, err, "Failed to add item")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateItem handles PUT /api/lists/{id}/items/{itemId}
func (h *ListsHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch lists.ItemPatch
	if !decode(w, r, &patch) {
		return
	}
	it, err := h.lists.UpdateItem(r.Context(), userID(r), r.PathValue("id"), r.PathValue("itemId"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update item")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, it)
}

// ToggleItem handles POST /api/lists/{id}/items/{itemId}/toggle
func (h *ListsHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.lists.ToggleItem(r.Context(), userID(r), r.PathValue("id"), r.PathValue("itemId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to toggle item")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, it)
}

// DeleteItem handles DELETE /api/lists/{id}/items/{itemId}
func (h *ListsHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.DeleteItem(r.Context(), userID(r), r.PathValue("id"), r.PathValue("itemId")); err != nil {
		writeServiceError(w, r, err, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
