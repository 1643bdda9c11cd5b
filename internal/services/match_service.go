package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nearby/internal/config"
	"nearby/internal/domain"
	"nearby/internal/domain/entities"
	"nearby/internal/geo"
	"nearby/internal/logger"
	"nearby/internal/metrics"
	"nearby/internal/repository"
)

// MatchOptions tune the nearby query pipeline.
type MatchOptions struct {
	Precision           int
	DefaultRadiusMeters float64
	MaxRadiusMeters     float64 // 0 means unlimited
	ScanTimeout         time.Duration
	MaxConcurrentScans  int
	EmptyTagsPolicy     string
	RequireTags         bool
}

// MatchOptionsFromConfig copies the relevant config sections.
func MatchOptionsFromConfig(cfg *config.Config) MatchOptions {
	return MatchOptions{
		Precision:           cfg.Geo.Precision,
		DefaultRadiusMeters: cfg.Match.DefaultRadiusMeters,
		MaxRadiusMeters:     cfg.Match.MaxRadiusMeters,
		ScanTimeout:         cfg.Match.ScanTimeout,
		MaxConcurrentScans:  cfg.Match.MaxConcurrentScans,
		EmptyTagsPolicy:     cfg.Match.EmptyTagsPolicy,
		RequireTags:         cfg.Match.TagsRequired(),
	}
}

// MatchResponse is the outcome of one nearby query. Matches is never nil.
type MatchResponse struct {
	Matches []entities.MatchResult `json:"matches"`
	Scanned int                    `json:"scanned"`
	Skipped int                    `json:"skipped"`
	Bounds  int                    `json:"bounds"`
}

// MatchService answers "who is near this point and shares an interest".
// A query runs in two stages:
//  1. Candidate stage: the circle is covered by a handful of geohash ranges,
//     each range is scanned concurrently and the hits are merged by user id.
//     Geohash cells are rectangles, so this over-fetches.
//  2. Refinement stage: every candidate is parsed, measured with Haversine
//     against the exact radius and filtered by shared tags.
//
// Go Learning Note — errgroup:
// golang.org/x/sync/errgroup is a sync.WaitGroup that also collects the
// first error and cancels a shared context when it happens. SetLimit caps
// how many goroutines run at once; g.Go blocks while the group is full. That
// gives a bounded fan-out with fail-fast semantics in a few lines, which is
// exactly what "scan all ranges, but give up as soon as one fails" needs.
type MatchService struct {
	store     repository.LocationStore
	locations *LocationService
	opts      MatchOptions
	log       *zap.Logger
}

func NewMatchService(store repository.LocationStore, locations *LocationService, opts MatchOptions, log *zap.Logger) *MatchService {
	opts.Precision = geo.ClampPrecision(opts.Precision)
	if opts.MaxConcurrentScans <= 0 {
		opts.MaxConcurrentScans = 4
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 8 * time.Second
	}
	if opts.EmptyTagsPolicy == "" {
		opts.EmptyTagsPolicy = config.PolicyMatchAll
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchService{store: store, locations: locations, opts: opts, log: log}
}

// FindNearby returns the users within req.RadiusMeters of req.Origin that
// pass the tag filter, nearest first. Invalid input fails before any store
// access. A failed range scan fails the whole query with a
// *domain.QueryFailedError; a cancelled caller gets the context error. No
// partial results are ever returned.
func (s *MatchService) FindNearby(ctx context.Context, req entities.QueryRequest) (*MatchResponse, error) {
	log := logger.FromContext(ctx, s.log)

	if err := s.validate(req); err != nil {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	bounds, err := geo.CoveringBounds(req.Origin.Latitude, req.Origin.Longitude, req.RadiusMeters, s.opts.Precision)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	candidates, err := s.collect(ctx, bounds)
	if err != nil {
		if ctx.Err() != nil {
			metrics.QueriesTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
			return nil, ctx.Err()
		}
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Warn("nearby query failed", zap.Int("bounds", len(bounds)), zap.Error(err))
		return nil, err
	}

	resp := s.refine(log, req, candidates)
	resp.Bounds = len(bounds)

	metrics.QueriesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.CandidatesScanned.Observe(float64(resp.Scanned))
	metrics.MatchesReturned.Observe(float64(len(resp.Matches)))
	log.Debug("nearby query",
		zap.Int("bounds", resp.Bounds),
		zap.Int("scanned", resp.Scanned),
		zap.Int("skipped", resp.Skipped),
		zap.Int("matches", len(resp.Matches)),
	)
	return resp, nil
}

// Explore runs FindNearby from the requester's own stored position with
// their own tags, excluding themselves. radiusMeters 0 means the default
// radius. A requester that never shared a location gets domain.ErrNotFound.
func (s *MatchService) Explore(ctx context.Context, userID string, radiusMeters float64) (*MatchResponse, error) {
	if s.locations == nil {
		return nil, errors.New("explore requires a location service")
	}
	me, err := s.locations.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if radiusMeters == 0 {
		radiusMeters = s.opts.DefaultRadiusMeters
	}
	return s.FindNearby(ctx, entities.QueryRequest{
		Origin:         me.Location,
		RadiusMeters:   radiusMeters,
		RequestingTags: me.Tags,
		ExcludedUserID: userID,
	})
}

// DefaultRadius is used by callers that let the radius be omitted.
func (s *MatchService) DefaultRadius() float64 {
	return s.opts.DefaultRadiusMeters
}

func (s *MatchService) validate(req entities.QueryRequest) error {
	if err := geo.ValidateCoordinate(req.Origin.Latitude, req.Origin.Longitude); err != nil {
		return err
	}
	if err := geo.ValidateRadius(req.RadiusMeters); err != nil {
		return err
	}
	if s.opts.MaxRadiusMeters > 0 && req.RadiusMeters > s.opts.MaxRadiusMeters {
		return fmt.Errorf("%w: %v m exceeds the maximum of %v m", domain.ErrInvalidRadius, req.RadiusMeters, s.opts.MaxRadiusMeters)
	}
	return nil
}

// collect scans every bound and returns the union keyed by user id.
func (s *MatchService) collect(ctx context.Context, bounds []domain.Bound) (map[string]entities.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrentScans)

	var mu sync.Mutex
	union := make(map[string]entities.RawRecord)

	for _, b := range bounds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scanCtx, cancel := context.WithTimeout(gctx, s.opts.ScanTimeout)
			defer cancel()

			start := time.Now()
			recs, err := s.store.RangeScan(scanCtx, b.Low, b.High)
			metrics.ScanDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				return domain.NewQueryFailed(b, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, r := range recs {
				if _, seen := union[r.ID]; !seen {
					union[r.ID] = r
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return union, nil
}

func (s *MatchService) refine(log *zap.Logger, req entities.QueryRequest, candidates map[string]entities.RawRecord) *MatchResponse {
	resp := &MatchResponse{
		Matches: []entities.MatchResult{},
		Scanned: len(candidates),
	}
	requester := entities.NewTagSet(req.RequestingTags)

	for id, raw := range candidates {
		if req.ExcludedUserID != "" && id == req.ExcludedUserID {
			continue
		}

		rec, err := entities.ParseRecord(raw)
		if err != nil {
			resp.Skipped++
			metrics.MalformedRecordsTotal.Inc()
			log.Warn("skipping malformed location record", zap.String("user_id", id), zap.Error(err))
			continue
		}

		distance := geo.HaversineDistance(
			req.Origin.Latitude, req.Origin.Longitude,
			rec.Location.Latitude, rec.Location.Longitude,
		)
		if distance > req.RadiusMeters {
			continue
		}

		matched := requester.Intersect(rec.Tags)
		if !s.tagsMatch(requester, matched) {
			continue
		}
		if matched == nil {
			matched = []string{}
		}

		resp.Matches = append(resp.Matches, entities.MatchResult{
			UserID:         rec.UserID,
			DistanceMeters: distance,
			MatchedTags:    matched,
		})
	}

	sort.Slice(resp.Matches, func(i, j int) bool {
		a, b := resp.Matches[i], resp.Matches[j]
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		return a.UserID < b.UserID
	})
	return resp
}

func (s *MatchService) tagsMatch(requester entities.TagSet, matched []string) bool {
	if !s.opts.RequireTags {
		return true
	}
	if len(requester) == 0 {
		return s.opts.EmptyTagsPolicy == config.PolicyMatchAll
	}
	return len(matched) > 0
}
