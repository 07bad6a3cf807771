package core

import (
	"context"
	"time"
)

const (
	loginCounterPrefix        = "filmforge:metrics:logins:"
	registrationCounterPrefix = "filmforge:metrics:registrations:"
	counterRetention          = 30 * 24 * time.Hour
)

// AuthMetrics holds per-day authentication counters.
type AuthMetrics struct {
	Logins        int64 `json:"logins"`
	Registrations int64 `json:"registrations"`
}

// MetricsService keeps daily login/registration counters in Redis. Counters
// are best-effort: recording failures are returned but callers ignore them
// rather than failing the request.
type MetricsService struct {
	redis CacheClient
}

func NewMetricsService(redis CacheClient) *MetricsService {
	return &MetricsService{redis: redis}
}

func counterDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (s *MetricsService) incr(ctx context.Context, key string) error {
	n, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		// First hit of the day; bound retention so keys do not pile up.
		return s.redis.Expire(ctx, key, counterRetention).Err()
	}
	return nil
}

// RecordLogin increments today's successful-login counter.
func (s *MetricsService) RecordLogin(ctx context.Context) error {
	return s.incr(ctx, loginCounterPrefix+counterDay(time.Now()))
}

// RecordRegistration increments today's registration counter.
func (s *MetricsService) RecordRegistration(ctx context.Context) error {
	return s.incr(ctx, registrationCounterPrefix+counterDay(time.Now()))
}

// Today returns the counters for the current UTC day. Missing keys read as
// zero.
func (s *MetricsService) Today(ctx context.Context) (AuthMetrics, error) {
	day := counterDay(time.Now())
	var m AuthMetrics

	logins, err := s.redis.Get(ctx, loginCounterPrefix+day).Int64()
	if err != nil && !isRedisNil(err) {
		return AuthMetrics{}, err
	}
	m.Logins = logins

	regs, err := s.redis.Get(ctx, registrationCounterPrefix+day).Int64()
	if err != nil && !isRedisNil(err) {
		return AuthMetrics{}, err
	}
	m.Registrations = regs
	return m, nil
}
