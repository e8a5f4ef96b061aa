// Package insight scores tenant and attendee activity with simple
// heuristics: churn risk, engagement and sudden metric changes.
package insight

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// ChurnInput describes recent tenant activity. A nil LastLoginDays counts
// as 30 days.
type ChurnInput struct {
	LastLoginDays   *float64 `json:"lastLoginDays,omitempty"`
	EventAttendance float64  `json:"eventAttendance"`
	TicketPurchases float64  `json:"ticketPurchases"`
	SupportTickets  float64  `json:"supportTickets"`
}

// ChurnRisk returns a risk between 0 and 1.
func ChurnRisk(in ChurnInput) float64 {
	lastLogin := 30.0
	if in.LastLoginDays != nil {
		lastLogin = *in.LastLoginDays
	}

	risk := 0.0
	risk += math.Min(lastLogin/30, 1) * 0.4
	risk -= math.Min(in.EventAttendance/5, 1) * 0.2
	risk -= math.Min(in.TicketPurchases/3, 1) * 0.2
	risk += math.Min(in.SupportTickets/5, 1) * 0.2
	return math.Max(0, math.Min(1, risk))
}

type Activity struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ActivityPurchase   = "purchase"
	ActivityAttendance = "attendance"
	ActivityLogin      = "login"
)

type Trend struct {
	Type        string `json:"type"`
	Trend       string `json:"trend"`
	RecentCount int    `json:"recentCount"`
	OlderCount  int    `json:"olderCount"`
}

type Engagement struct {
	Score           float64  `json:"score"`
	Trends          []Trend  `json:"trends"`
	Recommendations []string `json:"recommendations"`
}

func weight(activityType string) float64 {
	switch activityType {
	case ActivityPurchase:
		return 2
	case ActivityAttendance:
		return 1.5
	case ActivityLogin:
		return 1
	}
	return 0.5
}

// AnalyzeEngagement weighs each activity by type and by how recent it is,
// fading over 30 days, and averages the result.
func AnalyzeEngagement(activities []Activity, now time.Time) Engagement {
	total := 0.0
	for _, a := range activities {
		daysAgo := float64(now.Sub(a.Timestamp)) / float64(day)
		recency := math.Max(0.1, 1-daysAgo/30)
		total += weight(a.Type) * recency
	}
	score := total / math.Max(1, float64(len(activities)))

	trends := trends(activities, now)
	return Engagement{
		Score:           math.Min(1, score),
		Trends:          trends,
		Recommendations: recommendations(score, trends),
	}
}

// trends compares the last 7 days with everything older, per activity
// type, in order of first appearance.
func trends(activities []Activity, now time.Time) []Trend {
	result := make([]Trend, 0)
	index := make(map[string]int)
	for _, a := range activities {
		i, ok := index[a.Type]
		if !ok {
			i = len(result)
			index[a.Type] = i
			result = append(result, Trend{Type: a.Type})
		}
		if now.Sub(a.Timestamp) < 7*day {
			result[i].RecentCount++
		} else {
			result[i].OlderCount++
		}
	}
	for i := range result {
		switch t := &result[i]; {
		case t.RecentCount > t.OlderCount:
			t.Trend = "increasing"
		case t.RecentCount < t.OlderCount:
			t.Trend = "decreasing"
		default:
			t.Trend = "stable"
		}
	}
	return result
}

func recommendations(score float64, trends []Trend) []string {
	var result []string
	switch {
	case score < 0.3:
		result = append(result,
			"Consider implementing a re-engagement campaign",
			"Review and improve onboarding process")
	case score < 0.7:
		result = append(result,
			"Focus on increasing user participation in events",
			"Analyze most popular features and promote them")
	default:
		result = append(result,
			"Implement loyalty rewards program",
			"Gather testimonials from highly engaged users")
	}
	for _, t := range trends {
		if t.Trend == "decreasing" {
			result = append(result, "Investigate decrease in "+t.Type+" activity")
		}
	}
	return result
}

type Sample struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type Anomaly struct {
	Metric        string    `json:"metric"`
	Timestamp     time.Time `json:"timestamp"`
	Value         float64   `json:"value"`
	PreviousValue float64   `json:"previousValue"`
	ChangePercent float64   `json:"changePercent"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DetectAnomalies flags every sample that moved more than 50% from the one
// before it. A previous value of zero has no baseline and is never flagged.
func DetectAnomalies(samples []Sample) ([]Anomaly, Severity) {
	anomalies := make([]Anomaly, 0)
	maxDeviation := 0.0
	for i := 1; i < len(samples); i++ {
		current, previous := samples[i].Value, samples[i-1].Value
		if previous == 0 {
			continue
		}
		change := math.Abs((current - previous) / previous)
		if change > 0.5 {
			anomalies = append(anomalies, Anomaly{
				Metric:        samples[i].Name,
				Timestamp:     samples[i].Timestamp,
				Value:         current,
				PreviousValue: previous,
				ChangePercent: change * 100,
			})
			maxDeviation = math.Max(maxDeviation, change)
		}
	}

	switch {
	case maxDeviation > 1:
		return anomalies, SeverityHigh
	case maxDeviation > 0.7:
		return anomalies, SeverityMedium
	}
	return anomalies, SeverityLow
}
