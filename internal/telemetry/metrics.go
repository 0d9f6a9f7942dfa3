package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider sets the global meter provider backed by the
// Prometheus exporter. Returns the /metrics handler and a shutdown
// function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// Metrics holds the order-flow counters. All methods are safe on a nil
// receiver so wiring can skip metrics entirely.
type Metrics struct {
	ordersSubmitted      metric.Int64Counter
	verificationFailures metric.Int64Counter
	paymentsReconciled   metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("canteen")

	ordersSubmitted, err := meter.Int64Counter("canteen.orders.submitted",
		metric.WithDescription("Orders submitted, by payment type"))
	if err != nil {
		return nil, err
	}

	verificationFailures, err := meter.Int64Counter("canteen.payments.verification_failures",
		metric.WithDescription("Gateway payments that failed backend verification"))
	if err != nil {
		return nil, err
	}

	paymentsReconciled, err := meter.Int64Counter("canteen.payments.reconciled",
		metric.WithDescription("Captured payments whose order record was written by the reconciler"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersSubmitted:      ordersSubmitted,
		verificationFailures: verificationFailures,
		paymentsReconciled:   paymentsReconciled,
	}, nil
}

func (m *Metrics) OrderSubmitted(ctx context.Context, paymentType string) {
	if m == nil {
		return
	}
	m.ordersSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_type", paymentType)))
}

func (m *Metrics) VerificationFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.verificationFailures.Add(ctx, 1)
}

func (m *Metrics) PaymentReconciled(ctx context.Context) {
	if m == nil {
		return
	}
	m.paymentsReconciled.Add(ctx, 1)
}
