package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/handlers"
	"github.com/LovationAdmin/family-budget-api/middleware"
	"github.com/LovationAdmin/family-budget-api/routes"
	"github.com/LovationAdmin/family-budget-api/services"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"

	"github.com/gin-gonic/gin"
)

const (
	sessionCleanupInterval = 24 * time.Hour
	rateLimitCleanup       = 5 * time.Minute
	shutdownTimeout        = 15 * time.Second
)

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.DataBackend, utils.FieldError, err)
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("store close failed", utils.FieldError, err)
		}
	}()

	cipher, err := utils.NewCipher(cfg.DataEncryptionKey)
	if err != nil {
		return err
	}
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)

	// Publishers are appended once the hub exists; services only hold the pointer.
	var fanout events.Multi
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		fanout = append(fanout, amqpPub)
	}

	email := services.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.FrontendURL, logger)

	authSvc := services.NewAuthService(st, st, tokens, cipher, cfg.RefreshTokenTTL, logger)
	userSvc := services.NewUserService(st, cipher, cfg.JWTIssuer, &fanout, logger)
	familySvc := services.NewFamilyService(st, st, email, &fanout, logger)
	txnSvc := services.NewTransactionService(st, st, st, &fanout, logger)
	budgetSvc := services.NewBudgetService(st, st, st, st, &fanout, logger)
	categorySvc := services.NewCategoryService(st, st, st, logger)
	summarySvc := services.NewSummaryService(st, st, st, st)

	if err := categorySvc.EnsureDefaults(ctx); err != nil {
		logger.Error("failed to seed default categories", utils.FieldError, err)
		return err
	}

	hub := handlers.NewFamilyHub(familySvc, logger)
	defer hub.Close()
	fanout = append(fanout, hub)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	go limiter.Run(ctx, rateLimitCleanup)
	go scheduleSessionCleanup(ctx, st, logger)

	router := routes.NewRouter(routes.Handlers{
		Auth:        handlers.NewAuthHandler(authSvc),
		User:        handlers.NewUserHandler(userSvc),
		Family:      handlers.NewFamilyHandler(familySvc),
		Transaction: handlers.NewTransactionHandler(txnSvc),
		Budget:      handlers.NewBudgetHandler(budgetSvc),
		Category:    handlers.NewCategoryHandler(categorySvc),
		Summary:     handlers.NewSummaryHandler(summarySvc),
		Hub:         hub,
		Health:      handlers.Health(st),
	}, routes.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		Tokens:         tokens,
		RateLimiter:    limiter,
		Logger:         logger,
	})

	logger.Info("CORS origins", "origins", cfg.AllowedOrigins())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", utils.FieldError, err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scheduleSessionCleanup drops expired refresh sessions once at startup and
// then every sessionCleanupInterval.
func scheduleSessionCleanup(ctx context.Context, sessions store.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	cleanExpiredSessions(ctx, sessions, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanExpiredSessions(ctx, sessions, logger)
		}
	}
}

func cleanExpiredSessions(ctx context.Context, sessions store.SessionStore, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := sessions.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		logger.Error("session cleanup failed", utils.FieldError, err)
		return
	}
	if n > 0 {
		logger.Info("cleaned expired sessions", "count", n)
	}
}
