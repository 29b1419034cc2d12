package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/auth"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/config"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/dispatch"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/engine"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/events"
	httpapi "github.com/xtremerevenge2005/sts-pbh-sufis/internal/http"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/location"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/logging"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/store"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var recs store.Store
	if cfg.RedisAddr != "" {
		recs = store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
		logger.Info("record store: redis", "addr", cfg.RedisAddr)
	} else {
		recs = store.NewMemoryStore()
		logger.Warn("record store: in-memory (set REDIS_ADDR for persistence)")
	}

	wsreg := dispatch.NewWSRegistry(logger)
	notifiers := events.Multi{wsreg}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		notifiers = append(notifiers, kp)
		logger.Info("publishing ride events", "topic", cfg.KafkaTopic)
	}
	if cfg.WebhookEndpoint != "" {
		notifiers = append(notifiers, dispatch.NewWebhookNotifier(cfg.WebhookEndpoint))
	}

	eng := engine.New(recs, notifiers, logger)
	checker := auth.NewChecker(recs)
	resolver := location.NewResolver(cfg.ResolverTimeout, cfg.FallbackMapURL, logger)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(eng, checker, resolver, wsreg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("transport service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func runMigrations(dsn string) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Printf("migration db open error: %v", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_ride_events.sql"))
	if err != nil {
		log.Printf("migration read error: %v", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		log.Printf("migration exec error: %v", err)
		return
	}
	log.Printf("migration applied: 001_create_ride_events.sql")
}
