// Package server assembles the relay: storage, the presence-and-delivery
// core, the services and the HTTP, websocket and gRPC surfaces. It also
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/broadcast"
	"github.com/dmitrijs2005/gophrelay/internal/server/config"
	"github.com/dmitrijs2005/gophrelay/internal/server/delivery"
	"github.com/dmitrijs2005/gophrelay/internal/server/directory"
	"github.com/dmitrijs2005/gophrelay/internal/server/httpapi"
	"github.com/dmitrijs2005/gophrelay/internal/server/mailbox"
	"github.com/dmitrijs2005/gophrelay/internal/server/presence"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrelay/internal/server/seed"
	"github.com/dmitrijs2005/gophrelay/internal/server/services"
	"github.com/dmitrijs2005/gophrelay/internal/server/ws"

	gs "github.com/dmitrijs2005/gophrelay/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	chatService *services.ChatService
	seeder      *seed.Seeder
}

// NewApp wires every component for c. With the postgres driver it opens the
// database and applies migrations.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	rm, err := repomanager.New(c.StorageDriver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if c.StorageDriver == config.StoragePostgres {
		db, err = sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
	}

	registry := presence.NewRegistry(logger)
	dir := directory.New(rm.Users(db), registry, logger)
	mbox := mailbox.New(rm.Mailbox(db), c.DeliveryTimeout, logger)
	dispatcher := broadcast.New(registry, dir, c.BroadcastConcurrency, c.DeliveryTimeout, logger)
	engine := delivery.NewEngine(dir, registry, mbox, dispatcher, c.DeliveryTimeout, logger)

	provider := auth.NewProvider(c.SecretKey, c.AccessTokenValidityDuration, c.BcryptCost)
	us := services.NewUserService(db, rm, dir, provider, dispatcher, c, logger)
	seeder := seed.New(us, logger)
	cs := services.NewChatService(db, rm, engine, registry, dir, mbox, seeder, logger)

	return &App{config: c, logger: logger, db: db, userService: us, chatService: cs, seeder: seeder}, nil
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewgGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.chatService)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	wsHandler := ws.NewHandler(app.userService, app.chatService, app.config.AllowedOrigins, app.config.DeliveryTimeout, app.logger)
	s := httpapi.NewServer(app.userService, app.chatService, wsHandler, app.config.AllowedOrigins, app.logger)

	if err := s.Run(ctx, app.config.EndpointAddrHTTP); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageDriver)

	app.initSignalHandler(cancelFunc)

	if app.config.SeedDemoUsers {
		if err := app.seeder.Seed(ctx); err != nil {
			app.logger.Error(ctx, "seeding demo users failed", "error", err)
		}
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database failed", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
