package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/cart"
	"github.com/neurocanteen/canteen-go/internal/checkout"
	"github.com/neurocanteen/canteen-go/internal/kvstore"
	"github.com/neurocanteen/canteen-go/internal/menu"
	"github.com/neurocanteen/canteen-go/internal/messaging"
	"github.com/neurocanteen/canteen-go/internal/orders"
	"github.com/neurocanteen/canteen-go/internal/payment"
	"github.com/neurocanteen/canteen-go/internal/staff"
	"github.com/neurocanteen/canteen-go/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "canteen", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("canteen", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

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

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	gatewayURL := os.Getenv("GATEWAY_URL")
	gatewayKeyID := os.Getenv("GATEWAY_KEY_ID")
	gatewayKeySecret := os.Getenv("GATEWAY_KEY_SECRET")
	if gatewayURL == "" || gatewayKeyID == "" || gatewayKeySecret == "" {
		logger.Error("GATEWAY_URL, GATEWAY_KEY_ID and GATEWAY_KEY_SECRET environment variables are required")
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, messaging.TopicPaymentCaptured)
		defer func() { _ = producer.Close() }()
	}

	var orderProducer *messaging.Producer
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		orderProducer = messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
		defer func() { _ = orderProducer.Close() }()
	}

	tokenManager := auth.NewTokenManager([]byte(jwtSecret), 24*time.Hour)
	patientRepo := auth.NewPatientRepository(db)
	authHandler := auth.NewHandler(tokenManager, patientRepo, logger)

	cartStore := cart.NewStore(kvstore.NewPostgresStore(db))
	cartHandler := cart.NewHandler(cartStore, logger)

	menuRepo := menu.NewRepository(db)
	menuHandler := menu.NewHandler(menuRepo, logger)

	staffRepo := staff.NewRepository(db)
	staffHandler := staff.NewHandler(staffRepo, logger)

	orderRepo := orders.NewRepository(db)
	var orderPublisher orders.Publisher
	if orderProducer != nil {
		orderPublisher = orderProducer
	}
	// Every order write goes through the publishing submitter, so the
	// checkout and payment paths notify the kitchen console too.
	orderSubmitter := orders.NewPublishingSubmitter(orderRepo, orderPublisher, logger)
	orderHandler := orders.NewHandler(orderSubmitter, logger)

	checkoutService := checkout.NewService(cartStore, menuRepo, orderSubmitter, metrics, logger)
	checkoutHandler := checkout.NewHandler(checkoutService, logger)

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	gateway := payment.NewHTTPGateway(gatewayURL, gatewayKeyID, gatewayKeySecret, httpClient)
	intentRepo := payment.NewRepository(db)
	var capturedPublisher payment.Publisher
	if producer != nil {
		capturedPublisher = producer
	}
	paymentService := payment.NewService(gateway, intentRepo, checkoutService, orderSubmitter, cartStore, capturedPublisher, metrics, logger)
	paymentHandler := payment.NewHandler(paymentService, logger)

	authed := auth.Middleware(tokenManager)
	route := telemetry.WithHTTPRoute

	mux := http.NewServeMux()
	mux.HandleFunc("POST /authenticate/patient", route(authHandler.HandleAuthenticatePatient))
	mux.HandleFunc("POST /authenticate/guest", route(authHandler.HandleAuthenticateGuest))

	mux.HandleFunc("GET /menu-items", route(menuHandler.HandleList))

	mux.HandleFunc("GET /cart", route(authed(cartHandler.HandleGet)))
	mux.HandleFunc("POST /cart/items/{itemId}", route(authed(cartHandler.HandleAdd)))
	mux.HandleFunc("POST /cart/items/{itemId}/increase", route(authed(cartHandler.HandleIncrease)))
	mux.HandleFunc("POST /cart/items/{itemId}/decrease", route(authed(cartHandler.HandleDecrease)))
	mux.HandleFunc("DELETE /cart", route(authed(cartHandler.HandleClear)))

	mux.HandleFunc("POST /checkout/quote", route(authed(checkoutHandler.HandleQuote)))
	mux.HandleFunc("POST /checkout/cod", route(authed(checkoutHandler.HandleSubmitCOD)))

	mux.HandleFunc("POST /payment/createOrder", route(authed(auth.RequireUser(paymentHandler.HandleCreateOrder))))
	mux.HandleFunc("POST /payment/verifyPayment", route(authed(paymentHandler.HandleVerify)))
	mux.HandleFunc("POST /payment/cancel", route(authed(paymentHandler.HandleCancel)))

	mux.HandleFunc("GET /orders", route(authed(orderHandler.HandleList)))
	mux.HandleFunc("POST /orders", route(authed(orderHandler.HandleCreate)))

	mux.HandleFunc("GET /staff", route(authed(staffHandler.HandleList)))
	mux.HandleFunc("POST /staff", route(authed(staffHandler.HandleCreate)))
	mux.HandleFunc("PUT /staff/{id}", route(authed(staffHandler.HandleUpdate)))
	mux.HandleFunc("DELETE /staff/{id}", route(authed(staffHandler.HandleDelete)))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "canteen",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting canteen service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
