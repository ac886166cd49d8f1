package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/restock/internal/cache"
	"github.com/andresuchdata/restock/internal/domain"
	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/andresuchdata/restock/internal/repository"
	"github.com/andresuchdata/restock/internal/source"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted report ids.
	ErrSessionNotFound = errors.New("report session not found")
	// ErrInvalidPayload marks a backend payload that could not be decoded.
	ErrInvalidPayload = errors.New("invalid flow results payload")
)

const defaultMaxSessions = 32

// Fetcher returns the raw payload a source reference points to.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ReportServiceConfig holds the settings of a ReportService.
type ReportServiceConfig struct {
	Options            replenishment.ReportOptions
	ScenarioThresholds replenishment.Thresholds
	MaxSessions        int
}

// BuildResult identifies a loaded report.
type BuildResult struct {
	ID       string                `json:"id"`
	CacheHit bool                  `json:"cache_hit"`
	Report   *replenishment.Report `json:"report"`
}

type sessionEntry struct {
	session  *replenishment.Session
	loadedAt time.Time
}

// ReportService builds reports from backend payloads and keeps one session
// per built report so clients can filter it afterwards.
type ReportService struct {
	fetcher  Fetcher
	cache    cache.ReportCache
	runs     repository.ReportRunRepository
	opts     replenishment.ReportOptions
	scenario *replenishment.ScenarioCalculator
	now      func() time.Time

	mu          sync.RWMutex
	sessions    map[string]sessionEntry
	maxSessions int
}

func NewReportService(fetcher Fetcher, cacheImpl cache.ReportCache, runs repository.ReportRunRepository, cfg ReportServiceConfig) *ReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if runs == nil {
		runs = repository.NewMemoryRunRepository(0)
	}
	cfg.Options.Classifier = cfg.Options.Classifier.WithDefaults()
	if cfg.Options.TopN <= 0 {
		cfg.Options.TopN = replenishment.DefaultTopN
	}
	if cfg.ScenarioThresholds == (replenishment.Thresholds{}) {
		cfg.ScenarioThresholds = replenishment.DefaultScenarioThresholds()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}

	return &ReportService{
		fetcher:     fetcher,
		cache:       cacheImpl,
		runs:        runs,
		opts:        cfg.Options,
		scenario:    replenishment.NewScenarioCalculator(cfg.ScenarioThresholds),
		now:         time.Now,
		sessions:    make(map[string]sessionEntry),
		maxSessions: cfg.MaxSessions,
	}
}

// BuildFromRef fetches a payload from a source reference and builds it.
func (s *ReportService) BuildFromRef(ctx context.Context, ref string) (*BuildResult, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no source loader configured", source.ErrUnsupportedRef)
	}

	start := s.now()
	payload, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		s.recordFailure(ctx, ref, "", start, err)
		return nil, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	return s.BuildFromPayload(ctx, payload, ref)
}

// BuildFromPayload decodes and builds a report, reusing a cached build when
// the same payload was seen with the same options.
func (s *ReportService) BuildFromPayload(ctx context.Context, payload []byte, sourceRef string) (*BuildResult, error) {
	start := s.now()
	key := cache.ReportKey(payload, s.opts)

	report, hit, err := s.cache.GetReport(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("report: cache get failed")
	}

	if !hit {
		results, err := source.Decode(payload, replenishment.NewClassifier(s.opts.Classifier))
		if err != nil {
			s.recordFailure(ctx, sourceRef, payloadHash(payload), start, err)
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}

		report = replenishment.BuildReport(results, s.opts)

		if err := s.cache.SetReport(ctx, key, report); err != nil {
			log.Warn().Err(err).Msg("report: cache set failed")
		}
	}

	id := uuid.NewString()
	session := replenishment.NewSession(s.opts)
	session.Attach(report)
	s.storeSession(id, session)

	run := newRun(id, sourceRef, payloadHash(payload), report, start, s.now())
	run.CacheHit = hit
	if err := s.runs.SaveRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", id).Msg("report: failed to record run")
	}

	log.Info().
		Str("run_id", id).
		Str("source", sourceRef).
		Int("items", len(report.Items)).
		Bool("cache_hit", hit).
		Dur("elapsed", s.now().Sub(start)).
		Msg("report built")

	return &BuildResult{ID: id, CacheHit: hit, Report: report}, nil
}

// Session returns the session of a built report.
func (s *ReportService) Session(id string) (*replenishment.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.session, nil
}

// View applies filter to a report's session and returns the recomputed view.
func (s *ReportService) View(id string, filter replenishment.Filter) (replenishment.View, error) {
	session, err := s.Session(id)
	if err != nil {
		return replenishment.View{}, err
	}
	return session.FilterView(filter), nil
}

// FilterOptions lists the values a report can be filtered by.
func (s *ReportService) FilterOptions(id string) (replenishment.FilterOptions, error) {
	session, err := s.Session(id)
	if err != nil {
		return replenishment.FilterOptions{}, err
	}
	return session.Options(), nil
}

// MostUrgent returns up to limit items of a report ordered by current coverage.
// A non-positive limit uses the configured top-N size.
func (s *ReportService) MostUrgent(id string, limit int) ([]replenishment.ClassifiedItem, error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.TopN
	}
	return replenishment.MostUrgent(session.Report().Items, limit, replenishment.ClassifiedItem.CurrentCoverage), nil
}

// DeleteSession drops a report session.
func (s *ReportService) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Scenario runs the manual what-if calculator over rows.
func (s *ReportService) Scenario(rows []replenishment.ScenarioRow) replenishment.ScenarioBatch {
	return s.scenario.ComputeAll(rows)
}

// Methods returns the forecast method lookup table.
func (s *ReportService) Methods() []replenishment.Method {
	return replenishment.Methods()
}

// Thresholds returns the classifier configuration in use.
func (s *ReportService) Thresholds() replenishment.ClassifierConfig {
	return s.opts.Classifier
}

func (s *ReportService) Runs(ctx context.Context, filter domain.RunFilter) ([]domain.ReportRun, error) {
	return s.runs.ListRuns(ctx, filter)
}

func (s *ReportService) Run(ctx context.Context, id string) (*domain.ReportRun, error) {
	return s.runs.GetRun(ctx, id)
}

// storeSession adds a session, evicting the oldest ones beyond capacity.
func (s *ReportService) storeSession(id string, session *replenishment.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = sessionEntry{session: session, loadedAt: s.now()}
	for len(s.sessions) > s.maxSessions {
		var (
			oldestID string
			oldestAt time.Time
		)
		for sid, e := range s.sessions {
			if oldestID == "" || e.loadedAt.Before(oldestAt) {
				oldestID, oldestAt = sid, e.loadedAt
			}
		}
		delete(s.sessions, oldestID)
		log.Debug().Str("run_id", oldestID).Msg("report: session evicted")
	}
}

func (s *ReportService) recordFailure(ctx context.Context, ref, hash string, start time.Time, cause error) {
	end := s.now()
	run := &domain.ReportRun{
		ID:          uuid.NewString(),
		SourceRef:   ref,
		PayloadHash: hash,
		Status:      domain.RunFailed,
		Error:       cause.Error(),
		DurationMS:  end.Sub(start).Milliseconds(),
		CreatedAt:   end,
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("report: failed to record failed run")
	}
	log.Error().Err(cause).Str("source", ref).Msg("report build failed")
}

func newRun(id, ref, hash string, r *replenishment.Report, start, end time.Time) *domain.ReportRun {
	run := &domain.ReportRun{
		ID:          id,
		SourceRef:   ref,
		PayloadHash: hash,
		Status:      domain.RunSucceeded,
		Items:       r.Overall.ItemCount,
		ToOrder:     r.Overall.ToOrderCount,
		AtRisk:      r.Overall.AtRiskCount,
		Critical:    r.TierCounts[replenishment.TierCritical],
		Warning:     r.TierCounts[replenishment.TierWarning],
		Safe:        r.TierCounts[replenishment.TierSafe],
		StockValue:  r.Overall.StockValue,
		OrderValue:  r.Overall.OrderValue,
		DurationMS:  end.Sub(start).Milliseconds(),
		CreatedAt:   end,
	}
	for _, g := range r.ByFlow {
		run.Flows = append(run.Flows, domain.RunFlow{
			RunID:                     id,
			Flow:                      g.GroupKey,
			Items:                     g.ItemCount,
			ToOrder:                   g.ToOrderCount,
			AtRisk:                    g.AtRiskCount,
			WeightedCoverageCurrent:   g.WeightedCoverageCurrent,
			WeightedCoverageProjected: g.WeightedCoverageProjected,
			OrderValue:                g.OrderValue,
		})
	}
	return run
}

func payloadHash(payload []byte) string {
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}
