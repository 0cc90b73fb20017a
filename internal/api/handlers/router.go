package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/auth"
	"github.com/dvloznov/lifeledger/internal/categorizer"
	"github.com/dvloznov/lifeledger/internal/finance"
	"github.com/dvloznov/lifeledger/internal/jobs"
	"github.com/dvloznov/lifeledger/internal/lists"
	"github.com/dvloznov/lifeledger/internal/users"
	"github.com/dvloznov/lifeledger/internal/wellness"
	"github.com/rs/zerolog"
)

// Deps are the services behind the API. Categorizer and Realtime may be nil.
type Deps struct {
	Auth        *auth.Service
	Users       *users.Service
	Finance     *finance.Services
	Wellness    *wellness.Services
	Lists       *lists.Service
	Categorizer *categorizer.Categorizer
	Jobs        jobs.Publisher
	JobStore    jobs.JobStore
	Realtime    http.Handler
}

// NewRouter builds the API handler with its middleware.
func NewRouter(d Deps, log zerolog.Logger) http.Handler {
	authH := NewAuthHandler(d.Auth)
	usersH := NewUsersHandler(d.Users)
	txH := NewTransactionsHandler(d.Finance, d.Categorizer)
	finH := NewFinanceHandler(d.Finance)
	wellH := NewWellnessHandler(d.Wellness)
	listsH := NewListsHandler(d.Lists)
	jobsH := NewJobsHandler(d.Jobs, d.JobStore)

	// Authenticated routes
	api := http.NewServeMux()

	api.HandleFunc("GET /api/auth/me", authH.Me)

	api.HandleFunc("GET /api/users/me", usersH.Get)
	api.HandleFunc("PUT /api/users/me/profile", usersH.UpdateProfile)
	api.HandleFunc("PUT /api/users/me/preferences", usersH.UpdatePreferences)

	api.HandleFunc("GET /api/categories", finH.ListCategories)
	api.HandleFunc("POST /api/categories", finH.CreateCategory)
	api.HandleFunc("PUT /api/categories/{id}", finH.UpdateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", finH.DeleteCategory)

	api.HandleFunc("GET /api/transactions", txH.List)
	api.HandleFunc("POST /api/transactions", txH.Create)
	api.HandleFunc("PUT /api/transactions/{id}", txH.Update)
	api.HandleFunc("DELETE /api/transactions/{id}", txH.Delete)
	api.HandleFunc("POST /api/transactions/batch-delete", txH.BatchDelete)
	api.HandleFunc("POST /api/transactions/batch-update", txH.BatchUpdate)
	api.HandleFunc("POST /api/transactions/suggest-category", txH.SuggestCategory)

	api.HandleFunc("GET /api/bills", finH.ListBills)
	api.HandleFunc("POST /api/bills", finH.CreateBill)
	api.HandleFunc("PUT /api/bills/{id}", finH.UpdateBill)
	api.HandleFunc("DELETE /api/bills/{id}", finH.DeleteBill)
	api.HandleFunc("POST /api/bills/{id}/toggle", finH.ToggleBill)
	api.HandleFunc("POST /api/bills/{id}/pay", finH.PayBill)

	api.HandleFunc("GET /api/goals", finH.ListGoals)
	api.HandleFunc("POST /api/goals", finH.CreateGoal)
	api.HandleFunc("PUT /api/goals/{id}", finH.UpdateGoal)
	api.HandleFunc("DELETE /api/goals/{id}", finH.DeleteGoal)
	api.HandleFunc("POST /api/goals/{id}/deposit", finH.Deposit)
	api.HandleFunc("POST /api/goals/{id}/withdraw", finH.Withdraw)

	api.HandleFunc("GET /api/cards", finH.ListCards)
	api.HandleFunc("POST /api/cards", finH.CreateCard)
	api.HandleFunc("PUT /api/cards/{id}", finH.UpdateCard)
	api.HandleFunc("DELETE /api/cards/{id}", finH.DeleteCard)
	api.HandleFunc("POST /api/cards/{id}/expenses", finH.AddCardExpense)
	api.HandleFunc("POST /api/cards/{id}/pay", finH.PayCard)
	api.HandleFunc("POST /api/cards/{id}/anticipate", finH.Anticipate)
	api.HandleFunc("GET /api/cards/{id}/invoice", finH.Invoice)

	api.HandleFunc("GET /api/summary", finH.Summary)

	api.HandleFunc("GET /api/habits", wellH.ListHabits)
	api.HandleFunc("POST /api/habits", wellH.CreateHabit)
	api.HandleFunc("PUT /api/habits/{id}", wellH.UpdateHabit)
	api.HandleFunc("DELETE /api/habits/{id}", wellH.DeleteHabit)
	api.HandleFunc("POST /api/habits/{id}/toggle", wellH.ToggleHabit)
	api.HandleFunc("GET /api/gamification", wellH.Gamification)

	api.HandleFunc("GET /api/logs", wellH.ListLogs)
	api.HandleFunc("PUT /api/logs", wellH.SaveLog)
	api.HandleFunc("DELETE /api/logs/{date}", wellH.DeleteLog)
	api.HandleFunc("GET /api/logs/timeline", wellH.Timeline)
	api.HandleFunc("GET /api/logs/insights", wellH.Insights)

	api.HandleFunc("GET /api/lists", listsH.List)
	api.HandleFunc("POST /api/lists", listsH.Create)
	api.HandleFunc("DELETE /api/lists/{id}", listsH.Delete)
	api.HandleFunc("GET /api/lists/{id}/items", listsH.Items)
	api.HandleFunc("POST /api/lists/{id}/items", listsH.AddItem)
	api.HandleFunc("PUT /api/lists/{id}/items/{itemId}", listsH.UpdateItem)
	api.HandleFunc("DELETE /api/lists/{id}/items/{itemId}", listsH.DeleteItem)
	api.HandleFunc("POST /api/lists/{id}/items/{itemId}/toggle", listsH.ToggleItem)

	api.HandleFunc("GET /api/jobs", jobsH.List)
	api.HandleFunc("POST /api/jobs", jobsH.Enqueue)
	api.HandleFunc("GET /api/jobs/{id}", jobsH.Get)

	if d.Realtime != nil {
		api.Handle("GET /api/subscribe/{collection}", d.Realtime)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("POST /api/auth/logout", authH.Logout)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/api/", middleware.Auth(d.Auth)(api))

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)
}
