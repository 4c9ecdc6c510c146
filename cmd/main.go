package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/memory"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/metrics"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/postgres"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/redis"
	"github.com/YelzhanWeb/foodtruck/internal/app/admin"
	"github.com/YelzhanWeb/foodtruck/internal/app/kitchen"
	"github.com/YelzhanWeb/foodtruck/internal/app/order"
	"github.com/YelzhanWeb/foodtruck/internal/app/tracking"
	"github.com/YelzhanWeb/foodtruck/internal/config"
	"github.com/YelzhanWeb/foodtruck/internal/feed"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"

	amqpAdapter "github.com/YelzhanWeb/foodtruck/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/foodtruck/internal/adapter/http"
)

// runner is a background loop that returns once ctx is cancelled.
type runner func(ctx context.Context) error

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "", "Service mode: order-service, kitchen-display, admin-console, status-page, notification-subscriber, standalone")
	port := flag.Int("port", 3000, "HTTP port")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config")
	prefetch := flag.Int("prefetch", 10, "RabbitMQ prefetch count")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lgr := logger.NewWithOptions(*mode, logger.ParseLevel(cfg.Logging.Level), os.Stdout)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &application{cfg: cfg, lgr: lgr, port: *port, prefetch: *prefetch}
	defer app.close()

	switch *mode {
	case "order-service":
		app.runOrderService(ctx)
	case "kitchen-display":
		app.runKitchenDisplay(ctx)
	case "admin-console":
		app.runAdminConsole(ctx)
	case "status-page":
		app.runStatusPage(ctx)
	case "notification-subscriber":
		app.runNotificationSubscriber(ctx)
	case "standalone":
		app.runStandalone(ctx)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

// application holds the connections opened for one mode.
type application struct {
	cfg      *config.Config
	lgr      logger.Logger
	port     int
	prefetch int

	db      postgres.DB
	mq      rabbitmq.Connection
	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *application) database(ctx context.Context) postgres.DB {
	if a.db != nil {
		return a.db
	}
	db, err := postgres.Connect(ctx, a.cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	a.lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": a.cfg.Database.Host,
		"db":   a.cfg.Database.Database,
	})
	return db
}

func (a *application) amqpConn() rabbitmq.Connection {
	if a.mq != nil {
		return a.mq
	}
	conn, err := rabbitmq.Connect(a.cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	a.mq = conn
	a.closers = append(a.closers, func() { _ = conn.Close() })

	a.lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": a.cfg.RabbitMQ.Host,
	})
	return conn
}

// store returns the Postgres order store. It raises NOTIFY only when the
// feeds listen on Postgres.
func (a *application) store(ctx context.Context) interfaces.OrderStore {
	channel := ""
	if a.cfg.Feed.Push == config.PushPostgres {
		channel = a.cfg.Database.NotifyChannel
	}
	return postgres.NewOrderRepository(a.database(ctx), channel)
}

func (a *application) publisher() interfaces.MessagePublisher {
	if a.cfg.Feed.Push != config.PushRabbitMQ {
		return nil
	}
	return rabbitmq.NewPublisher(a.amqpConn())
}

// subscriber picks the push channel for the feeds. nil means poll only.
func (a *application) subscriber(ctx context.Context) interfaces.ChangeSubscriber {
	switch a.cfg.Feed.Push {
	case config.PushRabbitMQ:
		return rabbitmq.NewConsumer(a.amqpConn(), a.prefetch, a.lgr)
	case config.PushPostgres:
		return postgres.NewChangeListener(a.database(ctx), a.cfg.Database.NotifyChannel, a.lgr)
	default:
		return nil
	}
}

// ackStore persists kitchen acknowledgements in Redis when configured.
func (a *application) ackStore(ctx context.Context) interfaces.AckStore {
	if a.cfg.Redis.Addr == "" {
		return memory.NewAckStore()
	}
	client, err := redis.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		a.lgr.Error("redis_unavailable", "Acknowledgements will not survive a restart", "startup", map[string]interface{}{
			"addr": a.cfg.Redis.Addr,
		}, err)
		return memory.NewAckStore()
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return redis.NewAckStore(client, a.cfg.Kitchen.AckTTL)
}

func (a *application) orderService(store interfaces.OrderStore, publisher interfaces.MessagePublisher) *order.Service {
	return order.NewService(store, publisher, a.lgr)
}

func (a *application) kitchenService(store interfaces.OrderStore, sub interfaces.ChangeSubscriber, orders interfaces.OrderService, acks interfaces.AckStore) *kitchen.Service {
	sessionID := a.cfg.Kitchen.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	f := feed.New(feed.Config{
		Consumer:       "kitchen",
		PollInterval:   a.cfg.Feed.KitchenPoll,
		ReconnectDelay: a.cfg.Feed.ReconnectDelay,
	}, store, sub, a.lgr)
	alerts := kitchen.NewAlertCoordinator(sessionID, acks, kitchen.AlertAnnouncer(a.lgr, sessionID), a.lgr)
	return kitchen.NewService(f, alerts, orders, a.lgr, sessionID)
}

func (a *application) adminService(store interfaces.OrderStore, sub interfaces.ChangeSubscriber, orders interfaces.OrderService) *admin.Service {
	f := feed.New(feed.Config{
		Consumer:       "admin",
		PollInterval:   a.cfg.Feed.AdminPoll,
		ReconnectDelay: a.cfg.Feed.ReconnectDelay,
	}, store, sub, a.lgr)
	return admin.NewService(f, orders, store, a.lgr)
}

func (a *application) trackingService(store interfaces.OrderStore, sub interfaces.ChangeSubscriber) *tracking.Service {
	return tracking.NewService(tracking.Config{
		PollInterval:   a.cfg.Feed.StatusPoll,
		ReconnectDelay: a.cfg.Feed.ReconnectDelay,
	}, store, sub, a.lgr)
}

func (a *application) runOrderService(ctx context.Context) {
	orders := a.orderService(a.store(ctx), a.publisher())
	a.serve(ctx, "Order Service", httpAdapter.NewRouter(a.lgr,
		httpAdapter.NewOrderHandler(orders, a.lgr),
	))
}

func (a *application) runKitchenDisplay(ctx context.Context) {
	store := a.store(ctx)
	orders := a.orderService(store, a.publisher())
	svc := a.kitchenService(store, a.subscriber(ctx), orders, a.ackStore(ctx))

	a.serve(ctx, "Kitchen Display", httpAdapter.NewRouter(a.lgr,
		httpAdapter.NewKitchenHandler(svc, a.lgr),
	), svc.Run)
}

func (a *application) runAdminConsole(ctx context.Context) {
	store := a.store(ctx)
	orders := a.orderService(store, a.publisher())
	svc := a.adminService(store, a.subscriber(ctx), orders)

	a.serve(ctx, "Admin Console", httpAdapter.NewRouter(a.lgr,
		httpAdapter.NewAdminHandler(svc, a.lgr),
	), svc.Run)
}

func (a *application) runStatusPage(ctx context.Context) {
	svc := a.trackingService(a.store(ctx), a.subscriber(ctx))

	a.serve(ctx, "Status Page", httpAdapter.NewRouter(a.lgr,
		httpAdapter.NewTrackingHandler(svc, a.lgr),
	), svc.Run)
}

// runStandalone serves every surface from one process on in-memory adapters.
func (a *application) runStandalone(ctx context.Context) {
	store := memory.NewStore()
	broker := memory.NewBroker()
	orders := a.orderService(store, broker)

	kitchenSvc := a.kitchenService(store, broker, orders, memory.NewAckStore())
	adminSvc := a.adminService(store, broker, orders)
	trackingSvc := a.trackingService(store, broker)

	a.serve(ctx, "Food Truck (standalone)", httpAdapter.NewRouter(a.lgr,
		httpAdapter.NewOrderHandler(orders, a.lgr),
		httpAdapter.NewKitchenHandler(kitchenSvc, a.lgr),
		httpAdapter.NewAdminHandler(adminSvc, a.lgr),
		httpAdapter.NewTrackingHandler(trackingSvc, a.lgr),
	), kitchenSvc.Run, adminSvc.Run, trackingSvc.Run)
}

func (a *application) runNotificationSubscriber(ctx context.Context) {
	var consumer interfaces.MessageConsumer = rabbitmq.NewConsumer(a.amqpConn(), a.prefetch, a.lgr)
	handler := amqpAdapter.NewNotificationHandler(a.lgr)

	a.lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	if err := consumer.ConsumeNotifications(ctx, handler.HandleNotification); err != nil && !errors.Is(err, context.Canceled) {
		a.lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
	}

	a.lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
}

// serve runs the HTTP server and the background runners until ctx is
// cancelled, then shuts the server down and waits for the runners.
func (a *application) serve(ctx context.Context, name string, handler http.Handler, runners ...runner) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, run := range runners {
		wg.Add(1)
		go func(run runner) {
			defer wg.Done()
			if err := run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.lgr.Error("runner_failed", "Background loop stopped", "runtime", nil, err)
			}
		}(run)
	}

	a.lgr.Info("service_started", fmt.Sprintf("%s started on port %d", name, a.port), "startup", map[string]interface{}{
		"port": a.port,
		"push": a.cfg.Feed.Push,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		a.lgr.Info("shutdown_initiated", fmt.Sprintf("Shutting down %s", name), "shutdown", nil)

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.lgr.Error("server_error", "Server error", "runtime", nil, err)
	}

	cancel()
	wg.Wait()
}
