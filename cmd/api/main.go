package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Guizzs26/tradebook/internal/modules/auth"
	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	"github.com/Guizzs26/tradebook/internal/modules/pkg/logger"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/Guizzs26/tradebook/internal/modules/pkg/validatorx"
	"github.com/Guizzs26/tradebook/internal/modules/positions"
	"github.com/Guizzs26/tradebook/internal/modules/tickers"
	"github.com/Guizzs26/tradebook/internal/platform/config"
	"github.com/Guizzs26/tradebook/internal/platform/dynamo"
	"github.com/Guizzs26/tradebook/internal/platform/postgres"
	platformredis "github.com/Guizzs26/tradebook/internal/platform/redis"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config to api: %s\n", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	baseLogger := logger.NewSlogConfig(logger.SlogConfig{
		Level:     logger.Level(cfg.Log.Level),
		Format:    logger.Format(cfg.Log.Format),
		AddSource: cfg.Log.AddSource,
	})
	slog.SetDefault(baseLogger)
	ctx = ctxlogger.SetLogger(ctx, baseLogger)

	pgConn, err := postgres.NewPostgresConnection(ctx, *cfg)
	if err != nil {
		return err
	}
	defer pgConn.Close()

	if err := pgConn.Migrate(ctx); err != nil {
		return err
	}

	// Redis backs the token stores unless they live in memory; the history cache
	// uses it whenever it is reachable
	redisConn, err := platformredis.NewRedisConnection(ctx, *cfg)
	if err != nil {
		if cfg.Auth.RefreshBackend != config.BackendMemory {
			return err
		}
		baseLogger.Warn("redis unavailable, price history cache disabled", slog.String("error", err.Error()))
		redisConn = nil
	}
	if redisConn != nil {
		defer redisConn.Close()
	}

	clk := &clock.SystemClock{}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validatorx.NewValidator()
	e.HTTPErrorHandler = customErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.NewString()
		},
	}))
	e.Use(middleware.BodyLimit("2MB"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			auth.CSRFHeaderName,
		},
	}))
	e.Use(ContextualLoggerMiddleware(baseLogger))
	e.Use(RequestLoggerMiddleware())

	// ----- Auth module dependencies ----- //

	codec, err := auth.NewTokenCodec(cfg.Auth.Secret, cfg.Auth.Algorithm, cfg.AccessTokenTTL(), clk)
	if err != nil {
		return fmt.Errorf("failed to build token codec: %w", err)
	}

	revocations, refreshStore, err := buildTokenStores(ctx, cfg, redisConn, clk)
	if err != nil {
		return err
	}

	userRepo := auth.NewPostgresUserRepository(pgConn.Pool)
	passwords := auth.NewPasswordManager(cfg.Auth.PasswordPepper, auth.DefaultPasswordParams)
	authSvc := auth.NewService(userRepo, passwords, codec, revocations, refreshStore, auth.NewCSRFGuard(), clk)
	authHandler := auth.NewAuthHandler(authSvc, auth.DefaultCookieConfig(cfg.Cookie.Secure, cfg.Cookie.Domain))

	// ----- Tickers module dependencies ----- //

	var historyCache tickers.Cache = tickers.NopCache{}
	if redisConn != nil {
		historyCache = tickers.NewRedisCache(redisConn.Client)
	}

	tickersRepo := tickers.NewPostgresRepository(pgConn.Pool)
	provider := tickers.NewHTTPProvider(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.Timeout)
	tickersSvc := tickers.NewService(tickersRepo, provider, historyCache, cfg.Redis.CacheTTL, clk)
	tickersHandler := tickers.NewTickersHandler(tickersSvc)

	// ----- Positions module dependencies ----- //

	positionsRepo := positions.NewPostgresRepository(pgConn.Pool)
	positionsSvc := positions.NewService(positionsRepo, tickersSvc, clk)
	positionsHandler := positions.NewPositionsHandler(positionsSvc, auth.RequireAuth(authSvc))

	apiRouteGroup := e.Group("/api/v1")
	authHandler.RegisterRoutes(apiRouteGroup)
	tickersHandler.RegisterRoutes(apiRouteGroup)
	positionsHandler.RegisterRoutes(apiRouteGroup)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	baseLogger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildTokenStores picks the refresh store named by REFRESH_STORE_BACKEND.
// The denylist lives in memory for the memory backend and in Redis otherwise
func buildTokenStores(
	ctx context.Context,
	cfg *config.Config,
	redisConn *platformredis.Redis,
	clk clock.Clock,
) (auth.RevocationRegistry, auth.RefreshStore, error) {
	ttl := cfg.Auth.RefreshTokenTTL

	switch cfg.Auth.RefreshBackend {
	case config.BackendRedis:
		return auth.NewRedisRevocationRegistry(redisConn.Client, clk),
			auth.NewRedisRefreshStore(redisConn.Client, ttl),
			nil

	case config.BackendDynamoDB:
		client, err := dynamo.NewDynamoDBClient(ctx, *cfg)
		if err != nil {
			return nil, nil, err
		}
		store := auth.NewDynamoDBRefreshStore(client, cfg.DynamoDB.TableName, ttl, clk)
		if err := store.EnsureTable(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to prepare refresh token table: %w", err)
		}
		return auth.NewRedisRevocationRegistry(redisConn.Client, clk), store, nil

	default:
		revocations := auth.NewMemoryRevocationRegistry(clk)
		go revocations.Run(ctx, cfg.Auth.PruneInterval)
		refreshStore := auth.NewMemoryRefreshStore(ttl, clk)
		go refreshStore.Run(ctx, cfg.Auth.PruneInterval)
		return revocations, refreshStore, nil
	}
}

// ContextualLoggerMiddleware creates a request-scoped logger containing the request ID
// and injects it into the standard `context.Context` for use in downstream handlers and services
func ContextualLoggerMiddleware(baseLogger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			requestLogger := baseLogger.With(slog.String("request_id", requestID))

			ctx := ctxlogger.SetLogger(c.Request().Context(), requestLogger)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequestLoggerMiddleware configures Echo's request logger to write through the
// contextual logger, so every access log carries the request ID (and user_id once authenticated)
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			log := ctxlogger.GetLogger(ctx)

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("latency", v.Latency.String()),
			}
			if v.Error == nil {
				log.LogAttrs(ctx, slog.LevelInfo, "HTTP_REQUEST", attrs...)
				return nil
			}
			log.LogAttrs(ctx, slog.LevelError, "HTTP_REQUEST_ERROR", append(attrs, slog.String("error", v.Error.Error()))...)
			return nil
		},
	})
}
