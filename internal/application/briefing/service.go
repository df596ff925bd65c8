package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briefing/backend/internal/domain/briefing"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/cache"
	"github.com/briefing/backend/internal/infrastructure/telemetry"
)

// Config holds aggregation settings for the briefing service
type Config struct {
	// FetchTimeout bounds each provider's fetch calls within one assembly
	FetchTimeout time.Duration
	// EmailLimit caps emails requested per provider
	EmailLimit int
	// TicketLimit caps tickets requested per provider
	TicketLimit int
	// CacheTTL is how long an assembled briefing is served from cache
	CacheTTL time.Duration
	// AnalysisBatchDelay is the pause between consecutive analysis calls
	AnalysisBatchDelay time.Duration
}

// DefaultConfig returns the default aggregation settings
func DefaultConfig() Config {
	return Config{
		FetchTimeout:       10 * time.Second,
		EmailLimit:         20,
		TicketLimit:        10,
		CacheTTL:           0,
		AnalysisBatchDelay: 100 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.EmailLimit <= 0 {
		c.EmailLimit = d.EmailLimit
	}
	if c.TicketLimit <= 0 {
		c.TicketLimit = d.TicketLimit
	}
	if c.AnalysisBatchDelay < 0 {
		c.AnalysisBatchDelay = d.AnalysisBatchDelay
	}
	return c
}

// Service assembles the daily briefing: it fans out to the user's connected
// providers, normalizes and analyzes what came back, and returns three
// independently sorted feeds. Provider failures degrade to empty
// contributions and never fail the request.
type Service struct {
	registry provider.Registry
	analyzer briefing.Analyzer
	cache    cache.BriefingCache
	metrics  *telemetry.BriefingMetrics
	logger   *zap.Logger
	config   Config
}

// NewService creates a briefing service. analyzer, briefingCache and metrics
// are optional; a nil analyzer means every email takes the heuristic path.
func NewService(
	registry provider.Registry,
	analyzer briefing.Analyzer,
	briefingCache cache.BriefingCache,
	metrics *telemetry.BriefingMetrics,
	logger *zap.Logger,
	config Config,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		analyzer: analyzer,
		cache:    briefingCache,
		metrics:  metrics,
		logger:   logger,
		config:   config.withDefaults(),
	}
}

// GetBriefing assembles the briefing for one user. The only errors returned
// are context cancellation before assembly starts; provider and analysis
// failures are absorbed into partial or empty feeds.
func (s *Service) GetBriefing(ctx context.Context, orgID, userID uuid.UUID) (*BriefingDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cached := s.fromCache(ctx, userID); cached != nil {
		s.recordRequest(ctx, orgID, telemetry.BriefingOutcomeCached)
		return cached, nil
	}

	clients := s.registry.ListConnected(ctx, userID)
	results := s.fetchAll(ctx, clients)

	now := time.Now()
	dto := &BriefingDTO{
		Date:        now.Format("2006-01-02"),
		GeneratedAt: now,
		Emails:      []briefing.Entry{},
		Schedule:    []briefing.Entry{},
		Tickets:     []briefing.Entry{},
		Providers:   make([]ProviderDTO, 0, len(results)),
	}

	var emailContents []briefing.EmailContent
	failures := 0
	for _, res := range results {
		if res.failed {
			failures++
		}
		dto.Providers = append(dto.Providers, ProviderDTO{
			Code:    res.code.String(),
			Name:    res.code.DisplayName(),
			Fetched: !res.failed,
		})

		for _, raw := range res.emails {
			entry, err := briefing.NormalizeEmail(res.code, raw)
			if err != nil {
				continue
			}
			dto.Emails = append(dto.Emails, entry)
			emailContents = append(emailContents, briefing.EmailContent{
				Subject:    raw.Subject,
				Body:       raw.Body,
				From:       raw.SenderName,
				ReceivedAt: raw.ReceivedAt,
				Importance: raw.Importance,
			})
		}
		for _, raw := range res.events {
			entry, err := briefing.NormalizeEvent(res.code, raw)
			if err != nil {
				continue
			}
			dto.Schedule = append(dto.Schedule, entry)
		}
		for _, raw := range res.tickets {
			entry, err := briefing.NormalizeTicket(res.code, raw)
			if err != nil {
				continue
			}
			dto.Tickets = append(dto.Tickets, entry)
		}

		s.recordEntries(ctx, res)
	}

	s.analyzeEmails(ctx, dto.Emails, emailContents)

	briefing.SortEntries(dto.Emails)
	briefing.SortEntries(dto.Schedule)
	briefing.SortEntries(dto.Tickets)

	s.toCache(ctx, userID, dto)
	s.recordRequest(ctx, orgID, requestOutcome(len(results), failures))

	return dto, nil
}

// InvalidateCache drops the cached briefing for a user, forcing the next
// request to re-fetch. Called when the user's connections change.
func (s *Service) InvalidateCache(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate briefing cache",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Provider fan-out
// ---------------------------------------------------------------------------

type providerResult struct {
	code    provider.Code
	emails  []provider.RawEmail
	events  []provider.RawEvent
	tickets []provider.RawTicket
	failed  bool
	timeout bool
}

// fetchAll queries every client concurrently. Results keep the client order
// so the merged feed stays deterministic for equal timestamps.
func (s *Service) fetchAll(ctx context.Context, clients []provider.Client) []providerResult {
	results := make([]providerResult, len(clients))

	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client provider.Client) {
			defer wg.Done()
			results[i] = s.fetchOne(ctx, client)
		}(i, client)
	}
	wg.Wait()

	for _, res := range results {
		outcome := telemetry.FetchOutcomeSuccess
		if res.timeout {
			outcome = telemetry.FetchOutcomeTimeout
		} else if res.failed {
			outcome = telemetry.FetchOutcomeFailed
		}
		if s.metrics != nil {
			s.metrics.RecordProviderFetch(ctx, res.code.String(), outcome)
		}
	}
	return results
}

// fetchOne runs the three capability fetches for one provider under a shared
// timeout. Each call is wrapped individually: a failing capability leaves the
// others' contributions intact.
func (s *Service) fetchOne(ctx context.Context, client provider.Client) providerResult {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	res := providerResult{code: client.Code()}

	emails, err := client.FetchRecentEmails(fetchCtx, s.config.EmailLimit)
	if err != nil {
		s.noteFetchError(&res, "emails", err)
	} else {
		res.emails = emails
	}

	events, err := client.FetchTodayEvents(fetchCtx)
	if err != nil {
		s.noteFetchError(&res, "events", err)
	} else {
		res.events = events
	}

	tickets, err := client.FetchOpenTickets(fetchCtx, s.config.TicketLimit)
	if err != nil {
		s.noteFetchError(&res, "tickets", err)
	} else {
		res.tickets = tickets
	}

	return res
}

func (s *Service) noteFetchError(res *providerResult, capability string, err error) {
	res.failed = true
	if errors.Is(err, context.DeadlineExceeded) {
		res.timeout = true
	}
	s.logger.Warn("provider fetch failed",
		zap.String("provider", res.code.String()),
		zap.String("capability", capability),
		zap.Error(err))
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

// analyzeEmails enriches email entries in place. The analyzer is called
// sequentially with a small delay to respect rate limits; every failure
// degrades that one email to the heuristic result.
func (s *Service) analyzeEmails(ctx context.Context, entries []briefing.Entry, contents []briefing.EmailContent) {
	for i := range entries {
		content := contents[i]

		if s.analyzer == nil {
			s.applyFallback(ctx, &entries[i], content)
			continue
		}

		if i > 0 && s.config.AnalysisBatchDelay > 0 {
			select {
			case <-ctx.Done():
				s.applyFallback(ctx, &entries[i], content)
				continue
			case <-time.After(s.config.AnalysisBatchDelay):
			}
		}

		analysis, err := s.analyzer.AnalyzeEmail(ctx, content)
		if err != nil {
			s.logger.Warn("email analysis failed, using heuristic fallback",
				zap.String("subject", content.Subject),
				zap.Error(err))
			s.applyFallback(ctx, &entries[i], content)
			continue
		}

		entries[i].ApplyAnalysis(analysis)
		if s.metrics != nil {
			s.metrics.RecordAnalysis(ctx, telemetry.AnalysisViaAI)
		}
	}
}

// applyFallback applies the deterministic heuristic judgment. The entry is
// still fully populated but not marked as AI-analyzed.
func (s *Service) applyFallback(ctx context.Context, entry *briefing.Entry, content briefing.EmailContent) {
	entry.ApplyAnalysis(briefing.HeuristicAnalysis(content))
	entry.AIAnalyzed = false
	if s.metrics != nil {
		s.metrics.RecordAnalysis(ctx, telemetry.AnalysisViaFallback)
	}
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func (s *Service) fromCache(ctx context.Context, userID uuid.UUID) *BriefingDTO {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return nil
	}

	payload, err := s.cache.Get(ctx, userID)
	if err != nil || payload == nil {
		return nil
	}

	var dto BriefingDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		s.logger.Warn("dropping malformed cached briefing",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		_ = s.cache.Invalidate(ctx, userID)
		return nil
	}
	return &dto
}

func (s *Service) toCache(ctx context.Context, userID uuid.UUID, dto *BriefingDTO) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, userID, payload, s.config.CacheTTL); err != nil {
		s.logger.Warn("failed to cache briefing",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func (s *Service) recordRequest(ctx context.Context, orgID uuid.UUID, outcome telemetry.BriefingOutcome) {
	if s.metrics != nil {
		s.metrics.RecordBriefingRequest(ctx, orgID, outcome)
	}
}

func (s *Service) recordEntries(ctx context.Context, res providerResult) {
	if s.metrics == nil {
		return
	}
	code := res.code.String()
	if n := len(res.emails); n > 0 {
		s.metrics.RecordEntries(ctx, code, briefing.KindEmail.String(), int64(n))
	}
	if n := len(res.events); n > 0 {
		s.metrics.RecordEntries(ctx, code, briefing.KindCalendar.String(), int64(n))
	}
	if n := len(res.tickets); n > 0 {
		s.metrics.RecordEntries(ctx, code, briefing.KindTicket.String(), int64(n))
	}
}

// requestOutcome classifies one assembly for metrics: all providers clean is
// success, a mixed fan-out is partial, everything failing is failed. Zero
// connected providers still counts as success.
func requestOutcome(total, failures int) telemetry.BriefingOutcome {
	switch {
	case failures == 0:
		return telemetry.BriefingOutcomeSuccess
	case failures == total:
		return telemetry.BriefingOutcomeFailed
	default:
		return telemetry.BriefingOutcomePartial
	}
}
