package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Markko1982/order-manager/configs"
	"github.com/Markko1982/order-manager/internal/adapter/cache"
	grpcadapter "github.com/Markko1982/order-manager/internal/adapter/grpc"
	httpadapter "github.com/Markko1982/order-manager/internal/adapter/http"
	"github.com/Markko1982/order-manager/internal/adapter/http/middleware"
	"github.com/Markko1982/order-manager/internal/adapter/kafka"
	"github.com/Markko1982/order-manager/internal/adapter/queue"
	"github.com/Markko1982/order-manager/internal/adapter/repo"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/Markko1982/order-manager/internal/security"
	"github.com/Markko1982/order-manager/internal/telemetry"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Run wires the service and blocks until ctx is cancelled or a component fails.
func Run(ctx context.Context, cfg configs.Config, env string) error {
	log := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	log.Info("order-api: starting up", "env", env, "db", cfg.Database.Driver)
	if env != "local" && env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	maxValue, err := cfg.MaxOrderValue()
	if err != nil {
		return err
	}

	// tracing: spans always recorded, exported only when an endpoint is set
	tp, err := telemetry.Setup(ctx, cfg.App.Name, env, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		URLPath:     cfg.Telemetry.URLPath,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// init database
	openCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	store, err := repo.Open(openCtx, cfg.Database.Driver, cfg.Database.DSN, repo.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()

	deps := usecase.Deps{
		Tx:         store,
		Products:   repo.NewProductRepo(store),
		Orders:     repo.NewOrderRepo(store),
		Categories: repo.NewCategoryRepo(store),
		Traces:     tp,
	}

	// init redis (optional)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		deps.Cache = cache.NewRedisCache(rdb, cfg.Cache.TTL)
		deps.Idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	}

	g, gctx := errgroup.WithContext(ctx)

	// init rabbitmq: producer + low-stock consumer (optional)
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fmt.Errorf("rabbitmq dial: %w", err)
		}
		defer conn.Close()

		pubCh, err := conn.Channel()
		if err != nil {
			return err
		}
		topo := queue.DefaultTopology()
		topo.Exchange = cfg.Rabbit.Exchange
		producer, err := queue.NewRabbitProducer(pubCh, topo, cfg.Rabbit.ConfirmTimeout)
		if err != nil {
			return err
		}
		deps.Events = producer

		subCh, err := conn.Channel()
		if err != nil {
			return err
		}
		monitor := queue.NewLowStockMonitor(deps.Products, cfg.Inventory.LowStockThreshold)
		router := queue.NewRouter(subCh,
			queue.WithPrefetch(cfg.Rabbit.Prefetch),
			queue.WithTimeout(cfg.Rabbit.HandlerTimeout),
			queue.WithRequeue(cfg.Rabbit.Requeue),
		)
		router.Register(topo.CreatedQueue, monitor.Handler())
		g.Go(func() error { return router.Run(gctx) })
	}

	createUC := usecase.NewCreateOrder(deps, usecase.Limits{MaxOrderValue: maxValue})
	updateUC := usecase.NewUpdateOrderStatus(deps)
	deleteUC := usecase.NewDeleteOrder(deps)
	queryUC := usecase.NewQueryOrders(deps)
	catalog := usecase.NewCatalog(deps)

	// register kafka-listener (optional)
	if len(cfg.Kafka.Brokers) > 0 {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Version, cfg.Kafka.FromOldest)
		if err != nil {
			return fmt.Errorf("kafka group: %w", err)
		}
		h := kafka.NewPaymentOutcomeHandler(updateUC)
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, h.Handle)
		g.Go(func() error {
			defer grp.Close()
			return consumer.Start(gctx)
		})
	}

	// gRPC health (optional)
	if cfg.GRPC.Addr != "" {
		hs, err := grpcadapter.NewHealthServer(store, grpcadapter.HealthOptions{
			CertFile: cfg.GRPC.CertFile,
			KeyFile:  cfg.GRPC.KeyFile,
		})
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		g.Go(func() error { return hs.Serve(gctx, lis) })
	}

	// init handlers + routers + middleware
	limits := httpadapter.RequestLimits{
		MaxItemQuantity: cfg.Orders.MaxItemQuantity,
		DefaultPageSize: cfg.Orders.DefaultPageSize,
		MaxPageSize:     cfg.Orders.MaxPageSize,
		Timeout:         cfg.HTTP.RequestTimeout,
	}
	router := httpadapter.NewRouter(
		httpadapter.NewOrderHandler(createUC, updateUC, deleteUC, queryUC, limits),
		httpadapter.NewProductHandler(catalog, limits),
		httpadapter.NewCategoryHandler(usecase.NewCategories(deps)),
		httpadapter.NewTokenHandler(cfg, security.DefaultClients()),
		middleware.NewAuthz(cfg),
	)
	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g.Go(func() error {
		log.Info("order-api listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("order-api: stopped", "error", err)
	return err
}
