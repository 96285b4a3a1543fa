package handlers

import (
	"net/http"

	"xpledger/internal/config"
	"xpledger/internal/db"
	"xpledger/internal/middleware"
	"xpledger/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg          config.Config
	txRunner     db.TxRunner
	users        UserStore
	accounts     AccountStore
	transactions TransactionStore
	comments     CommentStore
	featureAdmin FeatureCatalogAdmin
	moderators   ModeratorStore
	audit        AuditStore
	ledger       LedgerService
	quizzes      QuizService
	features     FeatureService
	interactions InteractionService
	hub          *websocket.Hub
}

func New(cfg config.Config, txRunner db.TxRunner, users UserStore, accounts AccountStore, transactions TransactionStore, comments CommentStore, featureAdmin FeatureCatalogAdmin, moderators ModeratorStore, audit AuditStore, ledgerSvc LedgerService, quizzes QuizService, features FeatureService, interactions InteractionService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:          cfg,
		txRunner:     txRunner,
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		comments:     comments,
		featureAdmin: featureAdmin,
		moderators:   moderators,
		audit:        audit,
		ledger:       ledgerSvc,
		quizzes:      quizzes,
		features:     features,
		interactions: interactions,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/account", h.GetAccount)
		r.Get("/account/transactions", h.ListTransactions)
		r.Get("/account/self-check", h.SelfCheck)
		r.Post("/quiz/complete", h.CompleteQuiz)
		r.Get("/features", h.ListFeatures)
		r.Get("/features/owned", h.ListOwnedFeatures)
		r.Post("/features/{key}/purchase", h.PurchaseFeature)
		r.Post("/comments", h.PostComment)
		r.Get("/articles/{articleID}/comments", h.ListComments)
		r.Put("/comments/{id}/reaction", h.React)
		r.Delete("/comments/{id}/reaction", h.ClearReaction)
		r.Post("/comments/{id}/report", h.Report)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireModerator(h.moderators, "CanViewLedger")).Get("/accounts", h.AdminListAccounts)
		r.With(middleware.RequireModerator(h.moderators, "CanViewLedger")).Get("/transactions", h.AdminListTransactions)
		r.With(middleware.RequireModerator(h.moderators, "CanViewLedger")).Get("/audit", h.ListAuditLogs)
		r.With(middleware.RequireModerator(h.moderators, "CanViewLedger")).Get("/penalties", h.AdminListPenalties)
		r.With(middleware.RequireModerator(h.moderators, "CanIssueRefunds")).Post("/refund", h.IssueRefund)
		r.With(middleware.RequireModerator(h.moderators, "")).Post("/reconcile/{accountID}", h.Reconcile)
		r.With(middleware.RequireModerator(h.moderators, "")).Post("/unfreeze/{accountID}", h.Unfreeze)
		r.With(middleware.RequireModerator(h.moderators, "")).Put("/features/{key}", h.UpsertFeature)
		r.With(middleware.RequireModerator(h.moderators, "")).Delete("/interactions/{id}", h.RemoveInteraction)
		r.With(middleware.RequireModerator(h.moderators, "")).Post("/promote", h.PromoteModerator)
		r.With(middleware.RequireModerator(h.moderators, "")).Post("/roles/grant", h.GrantRole)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
