package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"chatroom/internal/config"
	"chatroom/internal/db"
	"chatroom/internal/handlers"
	"chatroom/internal/logger"
	"chatroom/internal/metrics"
	"chatroom/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP server is built from.
type Deps struct {
	Users        handlers.UserStore
	Chats        handlers.ChatStore
	Tokens       handlers.TokenValidator
	Hub          *handlers.Hub
	Limits       handlers.Limits
	HistoryLimit int
	AccessLog    bool
}

// NewServer builds the fiber app with every route mounted.
func NewServer(d Deps) *fiber.App {
	if d.Hub == nil {
		d.Hub = handlers.NewHub()
	}
	if d.Limits.Rate == 0 {
		d.Limits = handlers.Limits{Rate: rate.Inf}
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// Middleware
	if d.AccessLog {
		app.Use(fiberlog.New())
	}
	app.Use(recover.New())
	app.Use(cors.New())

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Post("/register", handlers.RegisterHandler(d.Users))
	api.Post("/login", handlers.LoginHandler(d.Users))
	api.Post("/refresh", handlers.RefreshHandler(d.Users))

	// Protected Routes
	protected := api.Group("/", handlers.AuthMiddleware(d.Tokens))
	protected.Get("/messages/:chatId", handlers.HistoryHandler(d.Chats, d.HistoryLimit))
	protected.Post("/rooms", handlers.CreateRoomHandler(d.Chats))
	protected.Get("/rooms", handlers.ListRoomsHandler(d.Chats))
	protected.Post("/rooms/:id/join", handlers.JoinRoomHandler(d.Chats))
	protected.Get("/users", handlers.ListUsersHandler(d.Users, d.Hub))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// WebSocket Route
	// Middleware order matters: the upgrade check runs before the token check.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware(d.Tokens))
	app.Get("/ws", handlers.WebSocketHandler(handlers.NewRouter(d.Hub, d.Chats), d.Limits))

	return app
}

// RunServer serves until SIGINT or SIGTERM. With memory set no database is used.
func RunServer(cfg *config.ServerConfig, memory bool) error {
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens := services.NewTokens(cfg.JWTSecret)
	deps := Deps{
		Tokens:       tokens,
		Hub:          handlers.NewHub(),
		Limits:       handlers.Limits{Rate: rate.Limit(cfg.FrameRate), Burst: cfg.FrameBurst},
		HistoryLimit: cfg.HistoryLimit,
		AccessLog:    true,
	}

	if memory {
		store := services.NewMemoryStore(tokens)
		deps.Users, deps.Chats = store, store
		logger.Warn("memory_store", "detail", "data is lost on exit")
	} else {
		if err := db.InitDB(ctx, cfg.DSN()); err != nil {
			return errors.Wrap(err, "connect database")
		}
		defer db.CloseDB()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		deps.Users = services.NewUserService(db.Pool, tokens)
		deps.Chats = services.NewChatService(db.Pool)
	}

	app := NewServer(deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", cfg.Addr())
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	// Graceful Shutdown
	logger.Info("server_shutting_down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	logger.Info("server_stopped")
	return nil
}

// Migrate applies the schema and exits.
func Migrate(cfg *config.ServerConfig) error {
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()
	if err := db.InitDB(ctx, cfg.DSN()); err != nil {
		return errors.Wrap(err, "connect database")
	}
	defer db.CloseDB()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("migrated", "statements", len(db.Schema))
	return nil
}
