package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xpledger/internal/config"
	"xpledger/internal/db"
	"xpledger/internal/economy"
	"xpledger/internal/handlers"
	"xpledger/internal/ledger"
	"xpledger/internal/store"
	"xpledger/internal/websocket"
	"xpledger/internal/xp"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	transactions := store.NewTransactionStore(database)
	features := store.NewFeatureStore(database)
	comments := store.NewCommentStore(database)
	interactions := store.NewInteractionStore(database)
	quizPasses := store.NewQuizStore(database)
	moderators := store.NewModeratorStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledgerSvc := ledger.NewService(txRunner, accounts, transactions, audit, hub)
	engine := xp.NewEngine(xp.Config{
		PassingThreshold:  cfg.Economy.PassingThreshold,
		PerfectMultiplier: cfg.Economy.PerfectMultiplier,
	})
	quizSvc := economy.NewQuizService(txRunner, ledgerSvc, accounts, quizPasses, engine, cfg.Economy)
	featureSvc := economy.NewFeatureService(txRunner, ledgerSvc, accounts, features)
	interactionSvc := economy.NewInteractionService(txRunner, ledgerSvc, accounts, comments, interactions, quizPasses, audit, cfg.Economy)

	handler := handlers.New(cfg, txRunner, users, accounts, transactions, comments, features, moderators, audit, ledgerSvc, quizSvc, featureSvc, interactionSvc, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("xp ledger API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
