/*
ledgerd is the accounting service's HTTP entrypoint: it wires every
engine over a store/sqlite-backed store.Store plus a store/scratch
bbolt side-store, starts the cron scheduler, and serves api.NewRouter
with a graceful shutdown on SIGINT/SIGTERM — the same bootstrap shape
as the teacher's cmd/server/main.go, generalized from its single
in-memory store to SQLite-plus-scratch and from its hand-rolled
reconciliation ticker to the cron-based scheduler package.
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/api"
	"github.com/pennywise/ledger/auth"
	"github.com/pennywise/ledger/config"
	"github.com/pennywise/ledger/cryptoutil"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/importpipeline"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/report"
	"github.com/pennywise/ledger/scheduler"
	"github.com/pennywise/ledger/store/scratch"
	"github.com/pennywise/ledger/store/sqlite"
	"github.com/pennywise/ledger/transaction"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	db, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open sqlite store")
	}
	defer db.Close()

	scratchStore, err := scratch.Open(cfg.ScratchPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open scratch store")
	}
	defer scratchStore.Close()

	envelope, err := cryptoutil.NewEnvelope(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("build envelope cipher")
	}

	ledgers := ledger.New(db)
	accounts := account.New(db)
	txEngine := transaction.New(db)
	reports := report.New(db)
	tokens := auth.NewTokenEngine(db)
	channels := auth.NewChannelEngine(db)
	emailAuth := auth.NewEmailAuthEngine(db, envelope)
	recurring := scheduler.NewRecurringEngine(db, txEngine)
	installments := scheduler.NewInstallmentEngine(db, txEngine)
	imports := importpipeline.New(db, scratchStore)

	// systemActorID attributes audit rows the scheduler posts on its own
	// initiative (recurring-template approvals); it is a fresh random ID
	// generated at each process start rather than any particular user's,
	// since no human clicked approve.
	systemActorID := id.New()
	sched := scheduler.NewEngine(db, recurring, systemActorID, nil, logger.With().Str("component", "scheduler").Logger())

	if cfg.SchedulerOn {
		if err := sched.Start(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("start scheduler")
		}
		defer sched.Stop()
	}

	h := api.NewHandler(db, ledgers, accounts, txEngine, reports, tokens, channels, recurring, installments, imports, emailAuth, sched)
	router := api.NewRouter(h)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("ledgerd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
