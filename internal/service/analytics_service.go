package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/observability"
)

// AnalyticsService computes catalog analytics over the current courses and progress.
type AnalyticsService interface {
	GetSummary(ctx context.Context) (dto.CourseAnalytics, error)
	GetDisplay(ctx context.Context) (dto.AnalyticsView, error)
}

type analyticsService struct {
	catalog  CatalogService
	progress ProgressService
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService constructs the analytics service. cache may be nil.
func NewAnalyticsService(catalog CatalogService, progress ProgressService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &analyticsService{
		catalog:  catalog,
		progress: progress,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *analyticsService) GetSummary(ctx context.Context) (dto.CourseAnalytics, error) {
	ctx, span := observability.Tracer("service/analytics").Start(ctx, "analytics.aggregate")
	defer span.End()

	now := s.now()
	courses := s.catalog.All(ctx)
	progress := s.progress.GetAllCoursesProgress(ctx, courses)

	cacheKey := analyticsCacheKey(courses, progress, now)
	span.SetAttributes(
		attribute.String("analytics.cache_key", cacheKey),
		attribute.Int("analytics.course_count", len(courses)),
	)

	if cached, ok := s.fetchCache(ctx, cacheKey); ok {
		// The fingerprint covers every input, so only the timestamp can differ from a fresh run.
		cached.GeneratedAt = now.UTC()
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
		observability.AnalyticsRequests().WithLabelValues("hit").Inc()
		s.logger.Debug().Str("key", cacheKey).Msg("analytics served from cache")
		return cached, nil
	}

	analytics := CalculateCourseAnalytics(courses, progress, now)
	s.writeCache(ctx, cacheKey, analytics)
	observability.AnalyticsRequests().WithLabelValues("miss").Inc()
	return analytics, nil
}

func (s *analyticsService) GetDisplay(ctx context.Context) (dto.AnalyticsView, error) {
	analytics, err := s.GetSummary(ctx)
	if err != nil {
		return dto.AnalyticsView{}, err
	}
	return FormatAnalyticsForDisplay(analytics), nil
}

func (s *analyticsService) fetchCache(ctx context.Context, key string) (dto.CourseAnalytics, bool) {
	if s.cache == nil {
		return dto.CourseAnalytics{}, false
	}
	payload, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
		}
		return dto.CourseAnalytics{}, false
	}

	var analytics dto.CourseAnalytics
	if err := json.Unmarshal([]byte(payload), &analytics); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode analytics cache")
		return dto.CourseAnalytics{}, false
	}
	return analytics, true
}

func (s *analyticsService) writeCache(ctx context.Context, key string, analytics dto.CourseAnalytics) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(analytics)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode analytics cache")
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store analytics cache")
	}
}

// analyticsCacheKey fingerprints the inputs. The calendar day is included because the recent list depends on it.
func analyticsCacheKey(courses []models.Course, progress map[string]models.CourseProgress, now time.Time) string {
	hash := sha256.New()
	encoder := json.NewEncoder(hash)
	_ = encoder.Encode(courses)
	_ = encoder.Encode(progress)
	_, _ = hash.Write([]byte(now.UTC().Format(models.DateLayout)))
	return "analytics:v1:" + hex.EncodeToString(hash.Sum(nil))
}
