// Package telemetry provides OpenTelemetry integration for distributed tracing.
package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls span creation for briefing persistence queries.
type DBTracingConfig struct {
	Enabled          bool          // Enable database tracing
	LogFullSQL       bool          // Include full SQL statements in spans (dev only)
	SlowQueryThresh  time.Duration // Queries above this get a slow_query_warning event
	DBSystem         string        // Database system name reported on spans
	WithoutVariables bool          // Strip bind variables from recorded SQL
}

// DefaultDBTracingConfig returns the production defaults: tracing off,
// variables stripped, 200ms slow threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// contextKey is the private key type for values this package stashes in
// statement contexts.
type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime stamps the current time into the context so the
// after-query callbacks can compute elapsed duration.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}

// stampQueryStart is the shared before-callback: it records when the query
// entered gorm so slow-query detection measures the full round trip.
func stampQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = WithQueryStartTime(db.Statement.Context)
	}
}

// annotateQuerySpan enriches the active span with row counts, the table
// touched, errors, and a slow-query event when elapsed time exceeds thresh.
// ErrRecordNotFound is a normal outcome for lookups (a user with no Zendesk
// connection, say) and never marks the span as failed.
func annotateQuerySpan(db *gorm.DB, thresh time.Duration) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > thresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", thresh.Milliseconds()),
			))
		}
	}
}

// registerBeforeAll hooks fn ahead of every gorm operation under the given
// callback name prefix.
func registerBeforeAll(db *gorm.DB, prefix string, fn func(*gorm.DB)) error {
	if err := db.Callback().Create().Before("gorm:create").Register(prefix+":before_create", fn); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register(prefix+":before_query", fn); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register(prefix+":before_update", fn); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register(prefix+":before_delete", fn); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register(prefix+":before_row", fn); err != nil {
		return err
	}
	return db.Callback().Raw().Before("gorm:raw").Register(prefix+":before_raw", fn)
}

// registerAfterAll hooks fn after every gorm operation under the given
// callback name prefix.
func registerAfterAll(db *gorm.DB, prefix string, fn func(*gorm.DB)) error {
	if err := db.Callback().Create().After("gorm:create").Register(prefix+":after_create", fn); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register(prefix+":after_query", fn); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register(prefix+":after_update", fn); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:delete").Register(prefix+":after_delete", fn); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register(prefix+":after_row", fn); err != nil {
		return err
	}
	return db.Callback().Raw().After("gorm:raw").Register(prefix+":after_raw", fn)
}

// DBTracingPlugin wires otelgorm into a gorm connection and layers slow
// query detection on top, so feed assembly traces show which provider
// queries dominate the request.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm installs the otelgorm plugin plus the timing callbacks.
// Calling it twice on the same connection fails on duplicate callback names.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		// Query parameters can hold email bodies and ticket text.
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerBeforeAll(db, "db_tracing", stampQueryStart); err != nil {
		return err
	}
	if err := registerAfterAll(db, "db_tracing", p.slowQueryCallback); err != nil {
		return err
	}

	p.logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	annotateQuerySpan(db, p.config.SlowQueryThresh)
}

// DBTracingCallback is the standalone timing callback for connections that
// already carry their own span plugin and only need slow query marking.
type DBTracingCallback struct {
	slowQueryThresh time.Duration
}

func NewDBTracingCallback(slowQueryThresh time.Duration) *DBTracingCallback {
	return &DBTracingCallback{slowQueryThresh: slowQueryThresh}
}

// BeforeCallback records the query start time on the statement context.
func (c *DBTracingCallback) BeforeCallback(db *gorm.DB) {
	stampQueryStart(db)
}

// AfterCallback annotates the active span with the query outcome.
func (c *DBTracingCallback) AfterCallback(db *gorm.DB) {
	annotateQuerySpan(db, c.slowQueryThresh)
}

// RegisterCallbacks hooks the timing pair around every gorm operation.
func (c *DBTracingCallback) RegisterCallbacks(db *gorm.DB) error {
	if err := registerBeforeAll(db, "db_timing", c.BeforeCallback); err != nil {
		return err
	}
	return registerAfterAll(db, "db_timing", c.AfterCallback)
}
