/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back-office engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize SQLite store
  3. Wire payroll service and table resolver/mover
  4. Configure HTTP router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/boh.db ./server

  # Run with in-memory database and demo data
  DB_PATH=":memory:" ./server -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Environment variables
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tably/boh-engine/api"
	"github.com/tably/boh-engine/config"
	"github.com/tably/boh-engine/payroll"
	"github.com/tably/boh-engine/store/sqlite"
	"github.com/tably/boh-engine/tables"
)

func main() {
	seed := flag.Bool("seed", false, "seed demo data on startup")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	if *seed {
		if err := seedDemoData(context.Background(), store, cfg.VenueZone); err != nil {
			log.WithError(err).Fatal("failed to seed demo data")
		}
		log.Info("demo data seeded")
	}

	payrollSvc := payroll.NewService(store, store, store, store, &logMailer{log: log}, cfg.VenueZone)

	autoCloser := payroll.NewAutoCloser(store, log)
	autoCloser.Start()
	defer autoCloser.Stop()

	resolver := &tables.Resolver{
		Tables:      store,
		Bookings:    store,
		Assignments: store,
		Blocks:      store,
		Zone:        cfg.VenueZone,
		Duration:    cfg.Durations,
	}
	mover := &tables.Mover{
		Resolver:    resolver,
		Bookings:    store,
		Tables:      store,
		Assignments: store,
	}

	handler := api.NewHandler(payrollSvc, resolver, mover, api.AllowAll{}, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

// logMailer logs the summary instead of delivering it. Deployments swap in a
// real SMTP or provider-backed Mailer.
type logMailer struct {
	log *logrus.Logger
}

func (m *logMailer) SendPayrollSummary(_ context.Context, data *payroll.MonthData) error {
	m.log.WithFields(logrus.Fields{
		"year":      data.Year,
		"month":     int(data.Month),
		"employees": len(data.Employees),
		"total_pay": data.Totals.Pay.String(),
	}).Info("payroll summary email")
	return nil
}
