package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/quillworks/quill/backend/internal/auth"
	"github.com/quillworks/quill/backend/internal/cache"
	"github.com/quillworks/quill/backend/internal/categories"
	"github.com/quillworks/quill/backend/internal/config"
	"github.com/quillworks/quill/backend/internal/database"
	"github.com/quillworks/quill/backend/internal/identifier"
	"github.com/quillworks/quill/backend/internal/logging"
	"github.com/quillworks/quill/backend/internal/metrics"
	"github.com/quillworks/quill/backend/internal/notes"
	"github.com/quillworks/quill/backend/internal/ratelimit"
	"github.com/quillworks/quill/backend/internal/server"
	"github.com/quillworks/quill/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "quill-api",
		Short: "Quill Notes backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Bearer token TTL in minutes")
	cmd.PersistentFlags().String("cors-origins", defaults.GetString("cors.origins"), "Comma-separated CORS origins")
	cmd.PersistentFlags().String("redis-url", defaults.GetString("redis.url"), "Redis URL for the cache backend")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "cors.origins", "cors-origins")
	bindFlag(cmd, "redis.url", "redis-url")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// A local .env is optional; environment variables win either way.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, database.OpenOptions{
		Attempts: appConfig.ConnectAttempts,
		Backoff:  appConfig.ConnectBackoff,
	}, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "quill-auth",
		Audience:      "quill-api",
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	idProvider := identifier.NewUUIDProvider()
	cacheStore := cache.New(appConfig.RedisURL, logger)

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	categoriesService, err := categories.NewService(categories.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
		PageLimit:  appConfig.PageLimit,
		MaxLimit:   appConfig.MaxPageLimit,
	})
	if err != nil {
		return err
	}

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
		Cache:      cacheStore,
		CacheTTL:   appConfig.CacheTTL,
		PageLimit:  appConfig.PageLimit,
		MaxLimit:   appConfig.MaxPageLimit,
	})
	if err != nil {
		return err
	}

	limiter, err := ratelimit.NewLimiter(cacheStore, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Users:         usersService,
		Categories:    categoriesService,
		Notes:         notesService,
		Tokens:        tokenManager,
		Limiter:       limiter,
		Metrics:       metrics.NewMetrics("api"),
		CORSOrigins:   appConfig.CORSOrigins,
		AuthRateLimit: appConfig.AuthRateLimit,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
