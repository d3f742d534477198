package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "storeops-cloud/internal/api/http"
	"storeops-cloud/internal/audit"
	"storeops-cloud/internal/auth"
	catalogapp "storeops-cloud/internal/catalog/application"
	cataloghttp "storeops-cloud/internal/catalog/interfaces/http"
	catalogrepo "storeops-cloud/internal/catalog/infrastructure/postgres"
	"storeops-cloud/internal/eventing"
	"storeops-cloud/internal/eventing/eventbus"
	eventingrepo "storeops-cloud/internal/eventing/infrastructure/postgres"
	inventoryapp "storeops-cloud/internal/inventory/application"
	inventory "storeops-cloud/internal/inventory/domain"
	inventoryrepo "storeops-cloud/internal/inventory/infrastructure/postgres"
	inventoryhttp "storeops-cloud/internal/inventory/interfaces/http"
	locationrepo "storeops-cloud/internal/locations/infrastructure/postgres"
	"storeops-cloud/internal/observability/metrics"
	onlinesalesapp "storeops-cloud/internal/onlinesales/application"
	onlinesalesrepo "storeops-cloud/internal/onlinesales/infrastructure/postgres"
	onlinesaleshttp "storeops-cloud/internal/onlinesales/interfaces/http"
	reconapp "storeops-cloud/internal/reconciliation/application"
	reconrepo "storeops-cloud/internal/reconciliation/infrastructure/postgres"
	reconhttp "storeops-cloud/internal/reconciliation/interfaces/http"
	reconnotify "storeops-cloud/internal/reconciliation/notify"
	settlementapp "storeops-cloud/internal/settlement/application"
	settlementrepo "storeops-cloud/internal/settlement/infrastructure/postgres"
	settlementhttp "storeops-cloud/internal/settlement/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	locationChecker := auth.NewLocationChecker(db)
	locationRepo := locationrepo.NewLocationRepository(db)
	auditRepo := audit.NewRepository(db)

	baseBus := eventbus.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(
		inventory.BookReceived{},
		inventory.BookActivated{},
		inventory.SoldOutDetected{},
		inventory.BookSettled{},
		inventory.BookArchived{},
		reconapp.CountFlagged{},
		settlementapp.SettlementCreated{},
		settlementapp.SettlementApproved{},
		onlinesalesapp.ReportSubmitted{},
	)

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, cfg.TenantID, baseBus)

	eventing.Subscribe(baseBus, eventbus.EventTypeOf[inventory.SoldOutDetected](), "inventory.soldout.log", func(ctx context.Context, event any) error {
		evt, ok := event.(inventory.SoldOutDetected)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		logger.Printf("book sold out: book=%s location=%s", evt.BookID, evt.LocationID)
		return nil
	}, processedStore)
	eventing.Subscribe(baseBus, eventbus.EventTypeOf[reconapp.CountFlagged](), "reconciliation.flagged.log", func(ctx context.Context, event any) error {
		evt, ok := event.(reconapp.CountFlagged)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		metrics.IncAlertSent("flagged")
		logger.Printf("count flagged: book=%s variance=%d regressive=%t", evt.BookID, evt.Variance, evt.Regressive)
		return nil
	}, processedStore)

	gameRepo := catalogrepo.NewGameRepository(db)
	bookRepo := inventoryrepo.NewBookRepository(db)

	inventoryService, err := inventoryapp.NewService(bookRepo, gameRepo, publisher, inventoryapp.SystemClock{})
	if err != nil {
		logger.Fatalf("inventory service error: %v", err)
	}
	catalogService, err := catalogapp.NewService(gameRepo, inventoryService, catalogapp.SystemClock{})
	if err != nil {
		logger.Fatalf("catalog service error: %v", err)
	}

	alertCfg, err := reconapp.LoadAlertConfig()
	if err != nil {
		logger.Fatalf("alert config error: %v", err)
	}
	var reconOpts []reconapp.ServiceOption
	if alertCfg.WebhookURL != "" {
		channel, err := reconnotify.NewWebhookChannel(alertCfg.WebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		tpl, err := reconnotify.NewTemplate(alertCfg.Template)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		notifier, err := reconnotify.NewNotifier(locationRepo, channel, tpl,
			reconnotify.WithCooldown(alertCfg.Cooldown()),
			reconnotify.WithDedupeWindow(alertCfg.DedupeWindow()),
		)
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		reconOpts = append(reconOpts, reconapp.WithNotifier(
			reconnotify.NewThresholdNotifier(alertCfg, reconnotify.NewMultiNotifier(notifier)),
		))
	}
	countRepo := reconrepo.NewCountRepository(db)
	reconService, err := reconapp.NewService(countRepo, inventoryService, gameRepo, publisher, reconOpts...)
	if err != nil {
		logger.Fatalf("reconciliation service error: %v", err)
	}

	settlementRepo := settlementrepo.NewSettlementRepository(db)
	settlementService, err := settlementapp.NewService(settlementRepo, inventoryService, gameRepo, publisher)
	if err != nil {
		logger.Fatalf("settlement service error: %v", err)
	}

	reportRepo := onlinesalesrepo.NewReportRepository(db)
	onlineService, err := onlinesalesapp.NewService(reportRepo, publisher)
	if err != nil {
		logger.Fatalf("onlinesales service error: %v", err)
	}

	catalogHandler, err := cataloghttp.NewHandler(catalogService, auditRepo)
	if err != nil {
		logger.Fatalf("catalog handler error: %v", err)
	}
	inventoryHandler, err := inventoryhttp.NewHandler(inventoryService, locationChecker, auditRepo)
	if err != nil {
		logger.Fatalf("inventory handler error: %v", err)
	}
	reconHandler, err := reconhttp.NewHandler(reconService, locationChecker, auditRepo)
	if err != nil {
		logger.Fatalf("reconciliation handler error: %v", err)
	}
	settlementHandler, err := settlementhttp.NewHandler(settlementService, locationRepo, locationChecker, auditRepo)
	if err != nil {
		logger.Fatalf("settlement handler error: %v", err)
	}
	onlineHandler, err := onlinesaleshttp.NewHandler(onlineService, locationChecker, auditRepo)
	if err != nil {
		logger.Fatalf("onlinesales handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/games", catalogHandler)
	mux.Handle("/api/v1/games/", catalogHandler)
	mux.Handle("/api/v1/books", inventoryHandler)
	mux.Handle("/api/v1/books/", inventoryHandler)
	mux.Handle("/api/v1/counts", reconHandler)
	mux.Handle("/api/v1/counts/", reconHandler)
	mux.Handle("/api/v1/settlements", settlementHandler)
	mux.Handle("/api/v1/settlements/", settlementHandler)
	mux.Handle("/api/v1/online-sales", onlineHandler)
	mux.Handle("/api/v1/online-sales/", onlineHandler)
	mux.Handle("/api/v1/stats", apihttp.NewStatsHandler(db))
	mux.Handle("/api/v1/exports/settlements.csv", apihttp.NewExportSettlementsCSVHandler(db))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	TenantID    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:    getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
		metrics.ObserveHTTP(r.URL.Path, statusClass(resp.status), time.Since(start))
	})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
