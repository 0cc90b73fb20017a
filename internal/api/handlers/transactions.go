package handlers

import (
	"net/http"

	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/categorizer"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/finance"
)

// historySize is how many recent transactions category suggestions consult.
const historySize = 200

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	fin         *finance.Services
	categorizer *categorizer.Categorizer
}

// NewTransactionsHandler creates a new transactions handler. A nil
// categorizer suggests from history only.
func NewTransactionsHandler(fin *finance.Services, c *categorizer.Categorizer) *TransactionsHandler {
	if c == nil {
		c = categorizer.New(nil)
	}
	return &TransactionsHandler{fin: fin, categorizer: c}
}

// List handles GET /api/transactions. Filters: month (YYYY-MM), type,
// category, cardId. With a page parameter the response is paginated.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := queryMonth(r, "month")
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	f := finance.TransactionFilter{
		Month:    month,
		Type:     domain.TransactionType(q.Get("type")),
		Category: q.Get("category"),
		CardID:   q.Get("cardId"),
	}

	if q.Get("page") != "" {
		page, err := queryInt(r, "page", 1)
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		perPage, err := queryInt(r, "perPage", 0)
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		p, err := h.fin.Transactions.Page(r.Context(), userID(r), f, page, perPage)
		if err != nil {
			writeServiceError(w, r, err, "Failed to list transactions")
			return
		}
		if p.Items == nil {
			p.Items = []domain.Transaction{}
		}
		middleware.WriteJSON(w, http.StatusOK, p)
		return
	}

	txs, err := h.fin.Transactions.List(r.Context(), userID(r), f)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(txs))
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if !decode(w, r, &tx) {
		return
	}
	created, err := h.fin.Transactions.Add(r.Context(), userID(r), tx)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch finance.TransactionPatch
	if !decode(w, r, &patch) {
		return
	}
	tx, err := h.fin.Transactions.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.fin.Transactions.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchDelete handles POST /api/transactions/batch-delete
func (h *TransactionsHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.fin.Transactions.DeleteMany(r.Context(), userID(r), req.IDs); err != nil {
		writeServiceError(w, r, err, "Failed to delete transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"deleted": len(req.IDs)})
}

// BatchUpdate handles POST /api/transactions/batch-update
func (h *TransactionsHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []string                 `json:"ids"`
		Patch finance.TransactionPatch `json:"patch"`
	}
	if !decode(w, r, &req) {
		return
	}
	txs, err := h.fin.Transactions.UpdateMany(r.Context(), userID(r), req.IDs, req.Patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(txs))
}

// SuggestCategory handles POST /api/transactions/suggest-category
func (h *TransactionsHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string                 `json:"description"`
		Type        domain.TransactionType `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	uid := userID(r)

	cats, err := h.fin.Categories.List(ctx, uid, req.Type)
	if err != nil {
		writeServiceError(w, r, err, "Failed to suggest category")
		return
	}
	history, err := h.fin.Transactions.Recent(ctx, uid, historySize)
	if err != nil {
		writeServiceError(w, r, err, "Failed to suggest category")
		return
	}

	s, err := h.categorizer.Suggest(ctx, categorizer.Request{
		Description: req.Description,
		Type:        req.Type,
		Categories:  cats,
		History:     history,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to suggest category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s)
}
