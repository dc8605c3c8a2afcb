/*
server.go wires every handler above onto a chi.Router, grounded on the
teacher's api/server.go: the same middleware.Logger/Recoverer/RequestID
stack plus a permissive cors.Handler, but routing to the accounting
domain's ledgers/accounts/transactions/reports/imports instead of the
teacher's employees/policies/scenarios.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the full HTTP router. Every route except /healthz,
// user/token bootstrap and channel-code verification runs behind
// requireAuth.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", h.CreateUser)
		r.Post("/auth/tokens", h.CreateToken)
		r.Post("/channels/verify", h.VerifyChannelCode)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.tokens))

			r.Get("/users/{id}", h.GetUser)
			r.Get("/users/{id}/tokens", h.ListTokens)
			r.Delete("/tokens/{id}", h.RevokeToken)

			r.Post("/channels/codes", h.CreateChannelCode)
			r.Get("/users/{id}/channels", h.ListChannelBindings)
			r.Delete("/channels/{id}", h.UnbindChannel)

			r.Post("/ledgers", h.CreateLedger)
			r.Get("/ledgers", h.ListLedgers)
			r.Get("/ledgers/{id}", h.GetLedger)
			r.Patch("/ledgers/{id}", h.UpdateLedger)
			r.Delete("/ledgers/{id}", h.DeleteLedger)
			r.Post("/ledgers/{id}/clear-transactions", h.ClearTransactions)
			r.Post("/ledgers/{id}/clear-accounts", h.ClearAccounts)

			r.Post("/ledgers/{ledgerId}/accounts", h.CreateAccount)
			r.Get("/ledgers/{ledgerId}/accounts", h.ListAccounts)
			r.Get("/accounts/{id}", h.GetAccount)
			r.Patch("/accounts/{id}", h.UpdateAccount)
			r.Get("/accounts/{id}/deletion-check", h.CheckAccountDeletion)
			r.Delete("/accounts/{id}", h.DeleteAccount)
			r.Get("/accounts/{id}/balance", h.GetAccountBalance)

			r.Post("/ledgers/{ledgerId}/transactions", h.PostTransaction)
			r.Get("/ledgers/{ledgerId}/transactions", h.ListTransactions)
			r.Get("/transactions/{id}", h.GetTransaction)
			r.Delete("/transactions/{id}", h.DeleteTransaction)

			r.Post("/ledgers/{ledgerId}/tags", h.CreateTag)
			r.Get("/ledgers/{ledgerId}/tags", h.ListTags)

			r.Post("/ledgers/{ledgerId}/templates", h.CreateTransactionTemplate)
			r.Get("/ledgers/{ledgerId}/templates", h.ListTransactionTemplates)
			r.Post("/ledgers/{ledgerId}/templates/{id}/apply", h.ApplyTransactionTemplate)
			r.Delete("/templates/{id}", h.DeleteTransactionTemplate)

			r.Get("/ledgers/{ledgerId}/reports/balance-sheet", h.BalanceSheet)
			r.Get("/ledgers/{ledgerId}/reports/income-statement", h.IncomeStatement)

			r.Post("/ledgers/{ledgerId}/imports", h.CreatePreview)
			r.Post("/ledgers/{ledgerId}/imports/{id}/execute", h.ExecuteImport)
			r.Get("/ledgers/{ledgerId}/imports", h.ListImportSessions)
			r.Get("/imports/{id}", h.GetImportSession)

			r.Post("/ledgers/{ledgerId}/recurring-templates", h.CreateRecurringTemplate)
			r.Get("/ledgers/{ledgerId}/recurring-templates", h.ListRecurringTemplates)
			r.Get("/recurring-templates/due", h.ListDueRecurringTemplates)
			r.Post("/recurring-templates/{id}/approve", h.ApproveRecurringTemplate)
			r.Delete("/recurring-templates/{id}", h.DeleteRecurringTemplate)

			r.Post("/ledgers/{ledgerId}/installment-plans", h.CreateInstallmentPlan)
			r.Get("/ledgers/{ledgerId}/installment-plans", h.ListInstallmentPlans)
			r.Get("/installment-plans/{id}", h.GetInstallmentPlan)
			r.Delete("/installment-plans/{id}", h.DeleteInstallmentPlan)

			r.Post("/ledgers/{ledgerId}/email-auth", h.ConnectEmailAuth)
			r.Get("/ledgers/{ledgerId}/email-auth", h.GetEmailAuthStatus)
		})
	})

	return r
}
