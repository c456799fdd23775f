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
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"tableside/internal/config"
	dashport "tableside/internal/modules/dashboard/application/port"
	dashusecase "tableside/internal/modules/dashboard/application/usecase"
	dashinfra "tableside/internal/modules/dashboard/infrastructure"
	dashtransport "tableside/internal/modules/dashboard/interface"
	layoutusecase "tableside/internal/modules/layout/application/usecase"
	layouttransport "tableside/internal/modules/layout/interface"
	"tableside/internal/modules/realtime/application/handler"
	rtusecase "tableside/internal/modules/realtime/application/usecase"
	"tableside/internal/modules/realtime/infrastructure"
	rttransport "tableside/internal/modules/realtime/interface"
	serviceusecase "tableside/internal/modules/service/application/usecase"
	servicetransport "tableside/internal/modules/service/interface"
	"tableside/internal/platform/broker"
	"tableside/internal/platform/docstore"
	"tableside/internal/platform/docstore/memstore"
	"tableside/internal/platform/docstore/pgstore"
	"tableside/internal/platform/notify"
	"tableside/internal/shared/auth"
	"tableside/internal/shared/logging"
	"tableside/internal/shared/normalization"
)

var streamedCollections = []string{
	normalization.CollectionRequests,
	normalization.CollectionServerCalls,
	normalization.CollectionBillRequests,
	normalization.CollectionTables,
}

func main() {
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, logWriter, err := logging.Setup(cfg.Logging.Directory, logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.String("topic", cfg.Kafka.ChangesTopic))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	baseStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("document store unavailable", slog.String("driver", cfg.Store.Driver), slog.Any("error", err))
		os.Exit(1)
	}

	hub := infrastructure.NewHub()
	registry := infrastructure.NewHandlerRegistry()
	broadcastUC := rtusecase.NewBroadcastUseCase(hub)

	registry.Register(handler.NewEntityStreamHandler(streamedCollections, []string{"updated", "deleted"}, broadcastUC))
	registry.Register(&handler.RequestResolvedHandler{UseCase: broadcastUC})

	// With Kafka the change feed makes a round trip through the broker, otherwise it is
	// dispatched in process.
	var store docstore.Store
	var producer *broker.KafkaProducer
	if cfg.Kafka.Enabled() {
		producer = broker.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.ChangesTopic)
		store = docstore.WithObserver(baseStore, producer)
		broker.StartKafkaConsumers(ctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.ChangesTopic})
	} else {
		store = docstore.WithObserver(baseStore, broker.NewLocalFeed(registry))
	}

	var notifier dashport.CustomerNotifier = dashport.NoopNotifier{}
	var rabbit *notify.Client
	if cfg.Rabbit.URL != "" {
		rabbit, err = notify.Dial(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			slog.Warn("rabbitmq unavailable, customer notifications disabled", slog.Any("error", err))
		} else {
			notifier = dashinfra.NewRabbitNotifier(rabbit)
		}
	}

	dashboards := dashinfra.NewRegistry(store, hub, dashusecase.WithNotifier(notifier))
	editor := layoutusecase.NewEditor(store)

	validator, err := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
	if err != nil {
		slog.Error("jwt validator", slog.Any("error", err))
		os.Exit(1)
	}
	requireManager := []echo.MiddlewareFunc{auth.Middleware(validator), auth.RequireRestaurant("rid")}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(logWriter)

	// Customer page
	public := e.Group("/api/public/restaurants/:rid")
	servicetransport.NewCustomerHandler(serviceusecase.NewCustomer(store)).Register(public)
	e.GET("/ws/restaurants/:rid/tables/:table", rttransport.NewTableWebsocketHandler(hub, store, cfg.Websocket.SendBuffer))

	// Manager screens
	manager := e.Group("/api/restaurants/:rid", requireManager...)
	servicetransport.NewSettingsHandler(serviceusecase.NewSettings(store)).Register(manager)
	layouttransport.NewHandler(editor).Register(manager)
	manager.POST("/tables/:table/messages", rttransport.NewTableMessageHandler(broadcastUC, hub))
	e.GET("/ws/restaurants/:rid/dashboard", dashtransport.NewWebsocketHandler(hub, dashboards, cfg.Websocket.SendBuffer), requireManager...)
	e.GET("/ws/restaurants/:rid/notifications", rttransport.NewNotificationsWebsocketHandler(hub, cfg.Websocket.SendBuffer), requireManager...)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "dashboards": dashboards.Active()})
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", slog.Any("error", err))
	}
	dashboards.Close()
	cancel()
	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.Warn("kafka producer close", slog.Any("error", err))
		}
	}
	if rabbit != nil {
		rabbit.Close()
	}
	if err := store.Close(); err != nil {
		slog.Warn("document store close", slog.Any("error", err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.RunMigrate {
			if err := pgstore.Migrate(cfg.Postgres.URL); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return pgstore.Connect(ctx, cfg.Postgres.URL, cfg.Store.OpTimeout)
	default:
		slog.Warn("using in-memory document store, data is lost on restart")
		return memstore.New(), nil
	}
}
