// Package server wires configuration, storage, messaging and the HTTP API
// together and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/config"
	"github.com/dmitrijs2005/shopkeeper/internal/server/events"
	"github.com/dmitrijs2005/shopkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shopkeeper/internal/server/seed"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/dmitrijs2005/shopkeeper/internal/server/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

const serviceName = "shopkeeper"

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	authService  *services.AuthService
	orderService *services.OrderService
	metrics      *metrics.Metrics

	// closers release external connections in reverse order on shutdown.
	closers []func() error
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		config:  c,
		logger:  logging.New(c.LogBackend, c.LogLevel, os.Stdout),
		metrics: metrics.New(),
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	var opts []repomanager.Option
	if c.RedisAddr != "" {
		rdb, err := app.connectRedis()
		if err != nil {
			app.close()
			return nil, err
		}
		opts = append(opts, repomanager.WithRedisRevocations(rdb))
	}
	app.repomanager = repomanager.NewPostgresRepositoryManager(opts...)

	var publisher events.Publisher = events.NopPublisher{}
	if c.RabbitURL != "" {
		p, err := events.DialRabbit(c.RabbitURL)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("rabbitmq init error: %w", err)
		}
		app.closers = append(app.closers, p.Close)
		publisher = p
	}

	app.userService = services.NewUserService(db, app.repomanager, c, app.logger)
	app.authService = services.NewAuthService(db, app.repomanager, app.userService, c, app.logger, app.metrics)
	app.orderService = services.NewOrderService(db, app.repomanager, publisher, c, app.logger, app.metrics)

	return app, nil
}

func (app *App) connectRedis() (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})
	app.closers = append(app.closers, rdb.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return rdb, nil
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema, seeds the superadmin when asked to and serves
// HTTP until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, app.config.OTLPEndpoint, app.config.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("telemetry init error: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			app.logger.Warn(ctx, "tracer shutdown failed", "error", err)
		}
	}()

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	if app.config.SeedAdmin {
		if err := seed.Admin(ctx, app.userService, app.config.AdminEmail, app.config.AdminPassword, app.logger); err != nil {
			return err
		}
	}

	h := httpapi.NewHandler(app.authService, app.userService, app.orderService, app.logger, httpapi.Options{
		ExposeInternalErrors: app.config.ExposeInternalErrors,
		DefaultPageSize:      app.config.DefaultPageSize,
		MaxPageSize:          app.config.MaxPageSize,
	})

	srv := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, httpapi.NewRouter(h, app.metrics), app.logger, app.config.ShutdownTimeout)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("http server error: %w", err)
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}
