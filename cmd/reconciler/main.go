package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/neurocanteen/canteen-go/internal/cart"
	"github.com/neurocanteen/canteen-go/internal/checkout"
	"github.com/neurocanteen/canteen-go/internal/kvstore"
	"github.com/neurocanteen/canteen-go/internal/menu"
	"github.com/neurocanteen/canteen-go/internal/messaging"
	"github.com/neurocanteen/canteen-go/internal/orders"
	"github.com/neurocanteen/canteen-go/internal/payment"
	"github.com/neurocanteen/canteen-go/internal/reconcile"
	"github.com/neurocanteen/canteen-go/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "reconciler", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	grace := durationEnv(logger, "RECONCILE_GRACE", 5*time.Minute)
	interval := durationEnv(logger, "RECONCILE_INTERVAL", time.Minute)

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	gateway := payment.NewHTTPGateway(os.Getenv("GATEWAY_URL"), os.Getenv("GATEWAY_KEY_ID"), os.Getenv("GATEWAY_KEY_SECRET"), httpClient)

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")

	var orderPublisher orders.Publisher
	if kafkaBrokers != "" {
		orderProducer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), messaging.TopicOrderPlaced)
		defer func() { _ = orderProducer.Close() }()
		orderPublisher = orderProducer
	}

	cartStore := cart.NewStore(kvstore.NewPostgresStore(db))
	// Orders settled here went through the online payment path, so the
	// kitchen console still has to hear about them.
	orderSubmitter := orders.NewPublishingSubmitter(orders.NewRepository(db), orderPublisher, logger)
	checkoutService := checkout.NewService(cartStore, menu.NewRepository(db), orderSubmitter, metrics, logger)

	intentRepo := payment.NewRepository(db)
	paymentService := payment.NewService(gateway, intentRepo, checkoutService, orderSubmitter, cartStore, nil, metrics, logger)

	reconciler := reconcile.New(intentRepo, paymentService, metrics, logger, grace, interval)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		consumer := messaging.NewConsumer(brokers, messaging.TopicPaymentCaptured, "payment-reconciler")
		defer func() { _ = consumer.Close() }()

		go func() {
			logger.Info("consuming captured payment events", "brokers", brokers)
			if err := consumer.Consume(ctx, reconciler.HandleCapturedEvent); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
				logger.Error("consumer error", "error", err)
				cancel()
			}
		}()
	}

	logger.Info("starting payment reconciler", "grace", grace, "interval", interval)

	if err := reconciler.Run(ctx); !errors.Is(err, context.Canceled) {
		logger.Error("reconciler error", "error", err)
		os.Exit(1)
	}
	logger.Info("reconciler stopped")
}

func durationEnv(logger *slog.Logger, name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Error("invalid duration", "name", name, "value", raw)
		os.Exit(1)
	}
	return d
}
