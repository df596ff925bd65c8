// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BriefingMetrics provides business metrics for the briefing system.
// It tracks briefing assembly, provider fetch outcomes, analysis activity,
// and connection health.
type BriefingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	briefingRequestsTotal *Counter
	providerFetchTotal    *Counter
	analysisTotal         *Counter
	entriesTotal          *Counter

	// Gauge metrics (point-in-time values)
	activeConnections *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	connectionProvider ConnectionMetricsProvider
}

// ConnectionMetricsProvider provides connection data for periodic metrics
// collection. This interface allows the telemetry layer to query connection
// state without depending on the connection domain directly.
type ConnectionMetricsProvider interface {
	// GetActiveConnectionCounts returns the number of active connections
	// per provider code for an organization.
	GetActiveConnectionCounts(ctx context.Context, orgID uuid.UUID) (map[string]int64, error)
}

// BriefingMetricsConfig holds configuration for briefing metrics.
type BriefingMetricsConfig struct {
	Meter              metric.Meter
	Logger             *zap.Logger
	CollectInterval    time.Duration // Default: 5 minutes
	ConnectionProvider ConnectionMetricsProvider
}

// NewBriefingMetrics creates a new BriefingMetrics instance.
func NewBriefingMetrics(cfg BriefingMetricsConfig) (*BriefingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BriefingMetrics{
		meter:              cfg.Meter,
		logger:             logger,
		stopChan:           make(chan struct{}),
		connectionProvider: cfg.ConnectionProvider,
	}

	// Initialize counter metrics
	var err error

	bm.briefingRequestsTotal, err = NewCounter(
		cfg.Meter,
		"briefing_requests_total",
		"Total number of briefing requests served",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	bm.providerFetchTotal, err = NewCounter(
		cfg.Meter,
		"briefing_provider_fetch_total",
		"Total number of provider fetch attempts",
		"{fetches}",
	)
	if err != nil {
		return nil, err
	}

	bm.analysisTotal, err = NewCounter(
		cfg.Meter,
		"briefing_analysis_total",
		"Total number of entry analyses performed",
		"{analyses}",
	)
	if err != nil {
		return nil, err
	}

	bm.entriesTotal, err = NewCounter(
		cfg.Meter,
		"briefing_entries_total",
		"Total number of entries aggregated into briefings",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	// Connection gauge metrics
	bm.activeConnections, err = NewGauge(
		cfg.Meter,
		"briefing_active_connections",
		"Current number of active provider connections",
		"{connections}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Briefing Metrics
// =============================================================================

// BriefingOutcome represents the outcome of a briefing request for metrics labeling.
type BriefingOutcome string

const (
	BriefingOutcomeSuccess BriefingOutcome = "success"
	BriefingOutcomePartial BriefingOutcome = "partial"
	BriefingOutcomeFailed  BriefingOutcome = "failed"
	BriefingOutcomeCached  BriefingOutcome = "cached"
)

// RecordBriefingRequest records a briefing request.
// This should be called from the application layer when a briefing is assembled.
func (bm *BriefingMetrics) RecordBriefingRequest(ctx context.Context, orgID uuid.UUID, outcome BriefingOutcome) {
	bm.briefingRequestsTotal.Inc(ctx,
		AttrOrgID.String(orgID.String()),
		AttrOutcome.String(string(outcome)),
	)
}

// RecordEntries records the number of entries of a given kind that a provider
// contributed to a briefing.
func (bm *BriefingMetrics) RecordEntries(ctx context.Context, provider, entryKind string, count int64) {
	bm.entriesTotal.Add(ctx, count,
		AttrProvider.String(provider),
		AttrEntryKind.String(entryKind),
	)
}

// =============================================================================
// Provider Fetch Metrics
// =============================================================================

// FetchOutcome represents the outcome of a provider fetch for metrics labeling.
type FetchOutcome string

const (
	FetchOutcomeSuccess FetchOutcome = "success"
	FetchOutcomeFailed  FetchOutcome = "failed"
	FetchOutcomeTimeout FetchOutcome = "timeout"
)

// RecordProviderFetch records a provider fetch attempt.
// This should be called once per provider in each aggregation fan-out.
func (bm *BriefingMetrics) RecordProviderFetch(ctx context.Context, provider string, outcome FetchOutcome) {
	bm.providerFetchTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Analysis Metrics
// =============================================================================

// AnalysisVia indicates how an entry analysis was produced.
type AnalysisVia string

const (
	AnalysisViaAI       AnalysisVia = "ai"
	AnalysisViaFallback AnalysisVia = "fallback"
)

// RecordAnalysis records an entry analysis, labeled by whether the AI service
// produced it or the heuristic fallback did.
func (bm *BriefingMetrics) RecordAnalysis(ctx context.Context, via AnalysisVia) {
	bm.analysisTotal.Inc(ctx,
		AttrAnalysisVia.String(string(via)),
	)
}

// =============================================================================
// Connection Metrics
// =============================================================================

// RecordActiveConnections records the current active connection count for a
// provider. This is a gauge metric that should be updated periodically.
func (bm *BriefingMetrics) RecordActiveConnections(ctx context.Context, orgID uuid.UUID, provider string, count int64) {
	bm.activeConnections.Record(ctx, count,
		AttrOrgID.String(orgID.String()),
		AttrProvider.String(provider),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// OrgProvider provides organization IDs for periodic metrics collection.
type OrgProvider interface {
	GetActiveOrgIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects connection metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BriefingMetrics) StartPeriodicCollection(ctx context.Context, orgProvider OrgProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, orgProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BriefingMetrics) runPeriodicCollection(ctx context.Context, orgProvider OrgProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectConnectionMetrics(ctx, orgProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic briefing metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic briefing metrics collection")
			return
		case <-ticker.C:
			bm.collectConnectionMetrics(ctx, orgProvider)
		}
	}
}

// collectConnectionMetrics collects connection gauge metrics for all organizations.
func (bm *BriefingMetrics) collectConnectionMetrics(ctx context.Context, orgProvider OrgProvider) {
	if bm.connectionProvider == nil {
		bm.logger.Debug("No connection provider configured, skipping connection metrics collection")
		return
	}

	orgIDs, err := orgProvider.GetActiveOrgIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get organization IDs for metrics collection", zap.Error(err))
		return
	}

	for _, orgID := range orgIDs {
		bm.collectOrgConnectionMetrics(ctx, orgID)
	}
}

// collectOrgConnectionMetrics collects connection metrics for a single organization.
func (bm *BriefingMetrics) collectOrgConnectionMetrics(ctx context.Context, orgID uuid.UUID) {
	counts, err := bm.connectionProvider.GetActiveConnectionCounts(ctx, orgID)
	if err != nil {
		bm.logger.Warn("Failed to get connection counts for organization",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return
	}

	for provider, count := range counts {
		bm.RecordActiveConnections(ctx, orgID, provider, count)
	}
}

// Stop stops the periodic collection.
func (bm *BriefingMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBriefingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
