package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	cartapp "github.com/dmehra2102/Pickle-Storefront/internal/cart/application"
	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	carthttp "github.com/dmehra2102/Pickle-Storefront/internal/cart/infrastructure/http"
	cartmemory "github.com/dmehra2102/Pickle-Storefront/internal/cart/infrastructure/memory"
	cartredis "github.com/dmehra2102/Pickle-Storefront/internal/cart/infrastructure/redis"
	"github.com/dmehra2102/Pickle-Storefront/internal/config"
	"github.com/dmehra2102/Pickle-Storefront/internal/middleware"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/kafka"
	ordermongo "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/mongo"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/notify"
	orderpg "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/postgres"
	orderrabbit "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/rabbitmq"
	ordertwilio "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/twilio"
	"github.com/dmehra2102/Pickle-Storefront/pkg/idempotency"
	"github.com/dmehra2102/Pickle-Storefront/pkg/logging"
	"github.com/dmehra2102/Pickle-Storefront/pkg/outbox"
	"github.com/dmehra2102/Pickle-Storefront/pkg/shutdown"
	"github.com/dmehra2102/Pickle-Storefront/pkg/tracing"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()
	closers := shutdown.NewGroup(log)

	tp, err := tracing.Init(ctx, "storefront-service", cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	closers.Add("tracer", tp.Shutdown)

	policy := cartdomain.Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
	}

	// Session carts and checkout guard
	var sessions cartapp.SessionStore = cartmemory.NewStore()
	var guard application.SubmissionGuard = application.NewLocalGuard()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}
		closers.AddCloser("redis", rdb.Close)
		sessions = cartredis.NewStore(log, rdb, cfg.CartTTL)
		locker := idempotency.NewLocker(rdb, cfg.SubmitLockTTL)
		guard = application.ChainGuards(guard, application.NewLockGuard(log, locker, locker.TTL()/3))
	} else {
		log.Warn("REDIS_ADDR not set, carts are kept in memory")
	}
	carts := cartapp.NewService(log, sessions, policy, guard)

	// Order store
	var orders application.OrderStore
	switch cfg.OrderStore {
	case config.StoreMongo:
		db, err := ordermongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Error("mongo connect failed", "err", err)
			os.Exit(1)
		}
		closers.Add("mongo", db.Client().Disconnect)
		store := ordermongo.NewStore(log, db)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Error("mongo index setup failed", "err", err)
			os.Exit(1)
		}
		orders = store
	default:
		if cfg.RunMigrations {
			if err := orderpg.RunMigrations(cfg.PGURL); err != nil {
				log.Error("migrations failed", "err", err)
				os.Exit(1)
			}
		}
		pool, err := pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		closers.AddCloser("postgres", func() error { pool.Close(); return nil })
		orders = orderpg.NewRepository(log, pool)

		writer := orderkafka.NewWriter(log, cfg.KafkaBrokers)
		closers.AddCloser("kafka", writer.Close)
		dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
		relay := outbox.NewRelay(log, orderpg.NewOutboxStore(log, pool), dispatch, "storefront-relay")
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
	}

	notifier := buildNotifier(log, cfg, closers)

	svc := application.NewService(log, orders, notifier, carts, guard, policy, cfg.NotifyTimeout)

	// HTTP server
	r := chi.NewRouter()
	r.Use(middleware.Session, middleware.Identify)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Mount("/cart", carthttp.NewHandler(log, carts).Routes())
	r.Mount("/", orderhttp.NewHandler(log, svc).Routes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      otelhttp.NewHandler(r, "storefront-http"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "order_store", cfg.OrderStore, "notify_channel", cfg.NotifyChannel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	closers.Add("http", srv.Shutdown)
	if err := closers.Drain(10 * time.Second); err != nil {
		log.Warn("shutdown finished with errors", "err", err)
	}
	log.Info("storefront-service shutdown complete")
}

// buildNotifier falls back to the disabled notifier when the configured
// channel cannot be set up, so checkout keeps working.
func buildNotifier(log *slog.Logger, cfg config.Config, closers *shutdown.Group) application.Notifier {
	switch cfg.NotifyChannel {
	case config.ChannelWhatsApp:
		n, err := ordertwilio.NewNotifier(log, ordertwilio.Config{
			AccountSID:  cfg.TwilioAccountSID,
			AuthToken:   cfg.TwilioAuthToken,
			FromNumber:  cfg.TwilioWhatsAppNumber,
			AdminNumber: cfg.AdminWhatsAppNumber,
		})
		if err != nil {
			log.Warn("whatsapp notifier unavailable", "err", err)
			return notify.NewDisabled(log)
		}
		return n
	case config.ChannelRabbitMQ:
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Warn("rabbitmq notifier unavailable", "err", err)
			return notify.NewDisabled(log)
		}
		n, err := orderrabbit.NewNotifier(log, conn, cfg.NotifyQueue)
		if err != nil {
			_ = conn.Close()
			log.Warn("rabbitmq notifier unavailable", "err", err)
			return notify.NewDisabled(log)
		}
		closers.AddCloser("rabbitmq", conn.Close)
		closers.AddCloser("rabbitmq-channel", n.Close)
		return n
	default:
		return notify.NewDisabled(log)
	}
}
