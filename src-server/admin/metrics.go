package admin

import (
	"context"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"evhub/src-server/apperr"
	"evhub/src-server/insight"
)

type Sample = insight.Sample

// sample history is capped so a long running process doesn't grow forever
const maxSamples = 10_000

var timeRangeUnits = map[byte]time.Duration{
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
	'm': 30 * 24 * time.Hour,
}

// ParseTimeRange reads ranges such as "24h", "7d", "2w" or "1m" (30
// days). An unknown unit, or none at all, counts as days.
func ParseTimeRange(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return 0, apperr.Validation("Invalid time range %q", s)
	}
	value, err := strconv.Atoi(s[:digits])
	if err != nil {
		return 0, apperr.Validation("Invalid time range %q", s)
	}
	unit, ok := timeRangeUnits[s[len(s)-1]]
	if !ok {
		unit = timeRangeUnits['d']
	}
	// longer than time.Duration can hold
	if int64(value) > math.MaxInt64/int64(unit) {
		return 0, apperr.Validation("Invalid time range %q", s)
	}
	return time.Duration(value) * unit, nil
}

// RecordMetric stores one platform activity sample, such as a login or a
// ticket purchase.
func (s *Service) RecordMetric(name string, value float64) Sample {
	sample := Sample{Name: name, Value: value, Timestamp: s.now().UTC()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	if over := len(s.samples) - maxSamples; over > 0 {
		s.samples = append([]Sample(nil), s.samples[over:]...)
	}
	return sample
}

// Metrics returns the samples recorded within timeRange, oldest first.
func (s *Service) Metrics(timeRange string) ([]Sample, error) {
	d, err := ParseTimeRange(timeRange)
	if err != nil {
		return nil, err
	}
	threshold := s.now().Add(-d)

	s.mu.RLock()
	result := make([]Sample, 0)
	for _, sample := range s.samples {
		if !sample.Timestamp.Before(threshold) {
			result = append(result, sample)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

type Insights struct {
	Engagement insight.Engagement `json:"engagement"`
	Anomalies  []insight.Anomaly  `json:"anomalies"`
	Severity   insight.Severity   `json:"severity"`
}

// Insights analyzes the last 30 days of samples.
func (s *Service) Insights() (Insights, error) {
	samples, err := s.Metrics("30d")
	if err != nil {
		return Insights{}, err
	}
	activities := make([]insight.Activity, 0, len(samples))
	for _, sample := range samples {
		activities = append(activities, insight.Activity{Type: sample.Name, Timestamp: sample.Timestamp})
	}

	// anomalies only make sense between samples of the same metric
	byName := make(map[string][]Sample)
	names := make([]string, 0)
	for _, sample := range samples {
		if _, ok := byName[sample.Name]; !ok {
			names = append(names, sample.Name)
		}
		byName[sample.Name] = append(byName[sample.Name], sample)
	}
	result := Insights{
		Engagement: insight.AnalyzeEngagement(activities, s.now()),
		Anomalies:  make([]insight.Anomaly, 0),
		Severity:   insight.SeverityLow,
	}
	rank := map[insight.Severity]int{insight.SeverityLow: 0, insight.SeverityMedium: 1, insight.SeverityHigh: 2}
	for _, name := range names {
		anomalies, severity := insight.DetectAnomalies(byName[name])
		result.Anomalies = append(result.Anomalies, anomalies...)
		if rank[severity] > rank[result.Severity] {
			result.Severity = severity
		}
	}
	return result, nil
}

type Health struct {
	Status      string    `json:"status"`
	Store       string    `json:"store"`
	Goroutines  int       `json:"goroutines"`
	HeapBytes   uint64    `json:"heapBytes"`
	Uptime      string    `json:"uptime"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Health reports process figures and whether the store answers. A failing
// store makes the status "degraded".
func (s *Service) Health(ctx context.Context) Health {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	now := s.now()

	h := Health{
		Status:      "healthy",
		Store:       "ok",
		Goroutines:  runtime.NumGoroutine(),
		HeapBytes:   mem.HeapAlloc,
		Uptime:      now.Sub(s.startedAt).Round(time.Second).String(),
		LastUpdated: now.UTC(),
	}
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			h.Status = "degraded"
			h.Store = err.Error()
		}
	}
	return h
}
