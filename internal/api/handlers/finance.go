package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/finance"
)

// FinanceHandler handles categories, bills, goals, cards and the summary.
type FinanceHandler struct {
	fin *finance.Services
}

// NewFinanceHandler creates a new finance handler.
func NewFinanceHandler(fin *finance.Services) *FinanceHandler {
	return &FinanceHandler{fin: fin}
}

// ListCategories handles GET /api/categories?type=
func (h *FinanceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.fin.Categories.List(r.Context(), userID(r), domain.TransactionType(r.URL.Query().Get("type")))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list categories")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(cats))
}

// CreateCategory handles POST /api/categories
func (h *FinanceHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if !decode(w, r, &c) {
		return
	}
	created, err := h.fin.Categories.Add(r.Context(), userID(r), c)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateCategory handles PUT /api/categories/{id}
func (h *FinanceHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var patch finance.CategoryPatch
	if !decode(w, r, &patch) {
		return
	}
	c, err := h.fin.Categories.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *FinanceHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.fin.Categories.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBills handles GET /api/bills. Each bill carries its paid flag for
// the current month.
func (h *FinanceHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.fin.Bills.Statuses(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list bills")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(bills))
}

// CreateBill handles POST /api/bills
func (h *FinanceHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var b domain.Bill
	if !decode(w, r, &b) {
		return
	}
	created, err := h.fin.Bills.Add(r.Context(), userID(r), b)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create bill")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateBill handles PUT /api/bills/{id}
func (h *FinanceHandler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	var patch finance.BillPatch
	if !decode(w, r, &patch) {
		return
	}
	b, err := h.fin.Bills.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update bill")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// DeleteBill handles DELETE /api/bills/{id}
func (h *FinanceHandler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := h.fin.Bills.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete bill")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleBill handles POST /api/bills/{id}/toggle
func (h *FinanceHandler) ToggleBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.fin.Bills.ToggleActive(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to toggle bill")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// PayBill handles POST /api/bills/{id}/pay. An empty body pays the bill
// amount today.
func (h *FinanceHandler) PayBill(w http.ResponseWriter, r *http.Request) {
	var p finance.BillPayment
	if r.ContentLength != 0 && !decode(w, r, &p) {
		return
	}
	tx, err := h.fin.Bills.Pay(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		writeServiceError(w, r, err, "Failed to pay bill")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// ListGoals handles GET /api/goals
func (h *FinanceHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.fin.Goals.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list goals")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(goals))
}

// CreateGoal handles POST /api/goals
func (h *FinanceHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var g domain.Goal
	if !decode(w, r, &g) {
		return
	}
	created, err := h.fin.Goals.Add(r.Context(), userID(r), g)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create goal")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateGoal handles PUT /api/goals/{id}
func (h *FinanceHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var patch finance.GoalPatch
	if !decode(w, r, &patch) {
		return
	}
	g, err := h.fin.Goals.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update goal")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

// DeleteGoal handles DELETE /api/goals/{id}
func (h *FinanceHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.fin.Goals.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type amountRequest struct {
	Amount float64    `json:"amount"`
	Date   civil.Date `json:"date"`
}

// Deposit handles POST /api/goals/{id}/deposit
func (h *FinanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := h.fin.Goals.Deposit(r.Context(), userID(r), r.PathValue("id"), req.Amount)
	if err != nil {
		writeServiceError(w, r, err, "Failed to deposit")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

// Withdraw handles POST /api/goals/{id}/withdraw
func (h *FinanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := h.fin.Goals.Withdraw(r.Context(), userID(r), r.PathValue("id"), req.Amount)
	if err != nil {
		writeServiceError(w, r, err, "Failed to withdraw")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

// ListCards handles GET /api/cards
func (h *FinanceHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.fin.Cards.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list cards")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(cards))
}

// CreateCard handles POST /api/cards
func (h *FinanceHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var c domain.CreditCard
	if !decode(w, r, &c) {
		return
	}
	created, err := h.fin.Cards.Add(r.Context(), userID(r), c)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create card")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateCard handles PUT /api/cards/{id}
func (h *FinanceHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var patch finance.CardPatch
	if !decode(w, r, &patch) {
		return
	}
	c, err := h.fin.Cards.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// DeleteCard handles DELETE /api/cards/{id}
func (h *FinanceHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.fin.Cards.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCardExpense handles POST /api/cards/{id}/expenses. The response holds
// one transaction per installment.
func (h *FinanceHandler) AddCardExpense(w http.ResponseWriter, r *http.Request) {
	var e domain.CardExpense
	if !decode(w, r, &e) {
		return
	}
	txs, err := h.fin.Cards.AddExpense(r.Context(), userID(r), r.PathValue("id"), e)
	if err != nil {
		writeServiceError(w, r, err, "Failed to add card expense")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, list(txs))
}

// PayCard handles POST /api/cards/{id}/pay
func (h *FinanceHandler) PayCard(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.fin.Cards.PayInvoice(r.Context(), userID(r), r.PathValue("id"), req.Amount, req.Date)
	if err != nil {
		writeServiceError(w, r, err, "Failed to pay invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// Anticipate handles POST /api/cards/{id}/anticipate
func (h *FinanceHandler) Anticipate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transactionId"`
	}
	if !decode(w, r, &req) {
		return
	}
	tx, err := h.fin.Cards.AnticipateInstallment(r.Context(), userID(r), r.PathValue("id"), req.TransactionID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to anticipate installment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Invoice handles GET /api/cards/{id}/invoice?month=YYYY-MM. The month
// defaults to the current one.
func (h *FinanceHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	month, err := queryMonth(r, "month")
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	var m civil.Date
	if month != nil {
		m = *month
	}
	inv, err := h.fin.Cards.Invoice(r.Context(), userID(r), r.PathValue("id"), m)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, inv)
}

// Summary handles GET /api/summary
func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	d, err := h.fin.Summary.Dashboard(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to build summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}
