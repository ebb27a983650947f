package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freshiesAPI/handlers"
	"freshiesAPI/internal/config"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/jobs"
	"freshiesAPI/internal/logging"
	"freshiesAPI/internal/notification"
	"freshiesAPI/internal/observability"
	"freshiesAPI/middleware"
	"freshiesAPI/services"

	_ "net/http/pprof"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer lg.Closer()
	logger := lg.Sugar

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warnw("sentry init failed", "error", err)
	}
	defer flush()

	clerk.SetKey(cfg.ClerkSecretKey)
	notification.Configure(notification.DefaultPresentation)
	middleware.InitPrometheus()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.Connect(connectCtx, cfg.DatabaseURL, cfg.DBMaxConns)
	cancel()
	if err != nil {
		logger.Fatalw("database connection failed", "error", err)
	}
	defer func() {
		logger.Info("closing database connection pool")
		pool.Close()
	}()

	if err := db.Migrate(pool); err != nil {
		logger.Fatalw("migrations failed", "error", err)
	}
	logger.Info("database ready")

	store := db.New(pool, cfg.Location)

	notificationService := services.NewNotificationService(store, logger)
	defer notificationService.Stop()

	fcmService, err := notification.NewFCMService(ctx, cfg.FCMCredentialsFile, logger)
	if err != nil {
		logger.Warnw("could not initialize FCM, push disabled", "error", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		logger.Info("FCM push provider initialized")
	}

	catalog := services.NewCachedCatalog(store, 5*time.Minute)
	accountService := services.NewAccountService(store, logger)
	pointsService := services.NewPointsService(store, notificationService, logger)
	achievementService := services.NewAchievementService(store, catalog, pointsService, notificationService, cfg.Location, logger)
	routineService := services.NewRoutineService(store, achievementService, cfg.Location, logger)
	reminderService := services.NewReminderService(store, notificationService, cfg.Location, logger)
	photoService := services.NewPhotoService(store)

	runner := jobs.New(ctx, logger)
	runner.Every(cfg.ReminderInterval, "reminders", reminderService.FireDue)

	limiter := middleware.NewRateLimiter(5, 30)
	go limiter.Cleanup(ctx)

	childHandler := handlers.NewChildHandler(accountService, routineService, pointsService, logger)
	achievementHandler := handlers.NewAchievementHandler(accountService, achievementService, logger)
	reminderHandler := handlers.NewReminderHandler(accountService, reminderService, logger)
	photoHandler := handlers.NewPhotoHandler(accountService, photoService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	webhookHandler := handlers.NewWebhookHandler(accountService, cfg.ClerkWebhookSecret, logger)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurity(cfg.PprofSecret)(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "freshies-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuth(logger))

	protected.HandleFunc("/children", childHandler.ListChildren).Methods("GET")
	protected.HandleFunc("/children", childHandler.CreateChild).Methods("POST")
	protected.HandleFunc("/children/{childID}/completions", childHandler.RecordCompletion).Methods("POST")
	protected.HandleFunc("/children/{childID}/snapshot", childHandler.GetSnapshot).Methods("GET")
	protected.HandleFunc("/children/{childID}/points", childHandler.GetPoints).Methods("GET")

	protected.HandleFunc("/children/{childID}/achievements", achievementHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/children/{childID}/achievements/evaluate", achievementHandler.Evaluate).Methods("POST")

	protected.HandleFunc("/children/{childID}/reminders", reminderHandler.ListReminders).Methods("GET")
	protected.HandleFunc("/children/{childID}/reminders", reminderHandler.UpsertReminder).Methods("PUT")

	protected.HandleFunc("/children/{childID}/photos", photoHandler.AddPhoto).Methods("POST")
	protected.HandleFunc("/children/{childID}/photos/pairs", photoHandler.ListPairs).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/test", notificationHandler.SendTestNotification).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infow("starting server", "port", cfg.Port, "env", cfg.Env, "tz", cfg.Location.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server shutdown error", "error", err)
	}
	runner.Wait()

	logger.Info("server shutdown complete")
}
