package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guildbank/config"
	"guildbank/events"
	"guildbank/models"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider turns committed domain events into OpenTelemetry metrics
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	memberChangesCounter      metric.Int64Counter
	poolChangesCounter        metric.Int64Counter
	rewardsCounter            metric.Int64Counter
	rewardsAmountCounter      metric.Int64Counter
	purchasesCounter          metric.Int64Counter
	giveawaysOpenGauge        metric.Int64UpDownCounter
	giveawayEntriesCounter    metric.Int64Counter
	giveawaysSettledCounter   metric.Int64Counter
	schedulingGapsCounter     metric.Int64Counter
	invariantViolationCounter metric.Int64Counter
	accountResetsCounter      metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up a meter provider exporting to stdout on the configured
// interval. It is a no-op when metrics are disabled.
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.mu.Lock()
		mp.initialized = true
		mp.mu.Unlock()
		return nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create console exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	return mp.InitializeWithReader(reader)
}

// InitializeWithReader sets up the meter provider with a caller-supplied reader
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("guildbank")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.memberChangesCounter, MemberBalanceChangesTotal, "Member balance changes"},
		{&mp.poolChangesCounter, PoolBalanceChangesTotal, "Community pool balance changes"},
		{&mp.rewardsCounter, RewardsGrantedTotal, "Activity rewards granted"},
		{&mp.rewardsAmountCounter, RewardsGrantedAmount, "Credits paid as activity rewards"},
		{&mp.purchasesCounter, PurchasesTotal, "Completed shop purchases"},
		{&mp.giveawayEntriesCounter, GiveawayEntriesTotal, "Paid giveaway entries"},
		{&mp.giveawaysSettledCounter, GiveawaysSettledTotal, "Giveaways resolved or cancelled"},
		{&mp.schedulingGapsCounter, SchedulingGapsTotal, "Giveaways settled by the sweep instead of their timer"},
		{&mp.invariantViolationCounter, InvariantViolationsTotal, "Operations aborted on an impossible state"},
		{&mp.accountResetsCounter, AccountResetsTotal, "Administrative account resets"},
	}

	var err error
	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	mp.giveawaysOpenGauge, err = mp.meter.Int64UpDownCounter(
		GiveawaysOpen,
		metric.WithDescription("Giveaways opened minus giveaways settled since start"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create giveaways open gauge: %w", err)
	}
	return nil
}

// Attach records every event published on bus
func (mp *MetricsProvider) Attach(bus *events.Bus) {
	bus.SubscribeAll(mp.record)
}

func (mp *MetricsProvider) record(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.BalanceChangeEvent:
		mp.memberChangesCounter.Add(ctx, 1, typeAttr(e.TransactionType))
	case events.PoolChangeEvent:
		mp.poolChangesCounter.Add(ctx, 1, typeAttr(e.TransactionType))
	case events.RewardGrantedEvent:
		mp.rewardsCounter.Add(ctx, 1, typeAttr(e.Reason))
		mp.rewardsAmountCounter.Add(ctx, e.Amount, typeAttr(e.Reason))
	case events.PurchaseEvent:
		mp.purchasesCounter.Add(ctx, 1)
	case events.GiveawayJoinedEvent:
		mp.giveawayEntriesCounter.Add(ctx, 1)
	case events.GiveawayStateChangeEvent:
		mp.recordGiveawayState(ctx, e)
	case events.SchedulingGapEvent:
		mp.schedulingGapsCounter.Add(ctx, 1)
	case events.InvariantViolationEvent:
		mp.invariantViolationCounter.Add(ctx, 1)
	case events.AccountsResetEvent:
		mp.accountResetsCounter.Add(ctx, 1)
	}
}

func (mp *MetricsProvider) recordGiveawayState(ctx context.Context, e events.GiveawayStateChangeEvent) {
	if e.OldState == "" && e.NewState == models.GiveawayStateOpen {
		mp.giveawaysOpenGauge.Add(ctx, 1)
		return
	}
	if e.NewState.IsTerminal() {
		mp.giveawaysOpenGauge.Add(ctx, -1)
		mp.giveawaysSettledCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelState, string(e.NewState))),
		)
	}
}

func typeAttr(t models.TransactionType) metric.AddOption {
	return metric.WithAttributes(attribute.String(LabelType, string(t)))
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}
