package aitext

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON reports a response without any {...} span
var ErrNoJSON = errors.New("no JSON object in response")

const (
	DefaultConfidence  = 0.7
	DefaultTimeHorizon = "medium"
)

// ExtractJSONObject returns the greedy span from the first '{' to the last '}'
func ExtractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// InsightEntry one typed observation
type InsightEntry struct {
	Type        string  `json:"-"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// InsightMeta shared metadata attached to every insight of an article
type InsightMeta struct {
	KeyInsights       []string `json:"keyInsights"`
	Recommendations   []string `json:"recommendations"`
	TargetAudience    []string `json:"targetAudience"`
	TimeHorizon       string   `json:"timeHorizon"`
	OverallConfidence float64  `json:"overallConfidence"`
}

// InsightAnalysis parsed model answer
type InsightAnalysis struct {
	Trend       *InsightEntry `json:"trend"`
	Impact      *InsightEntry `json:"impact"`
	Opportunity *InsightEntry `json:"opportunity"`
	Risk        *InsightEntry `json:"risk"`
	InsightMeta
}

// Entries returns present insights in trend, impact, opportunity, risk order
func (a *InsightAnalysis) Entries() []InsightEntry {
	typed := []struct {
		name  string
		entry *InsightEntry
	}{
		{"trend", a.Trend},
		{"impact", a.Impact},
		{"opportunity", a.Opportunity},
		{"risk", a.Risk},
	}
	out := make([]InsightEntry, 0, len(typed))
	for _, t := range typed {
		if t.entry == nil {
			continue
		}
		e := *t.entry
		e.Type = t.name
		out = append(out, e)
	}
	return out
}

// ParseInsights extracts and decodes the JSON object. Defaults are applied
// to missing confidences and metadata.
func ParseInsights(raw string) (*InsightAnalysis, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var a InsightAnalysis
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}

	for _, e := range []*InsightEntry{a.Trend, a.Impact, a.Opportunity, a.Risk} {
		if e != nil {
			e.Confidence = clampConfidence(e.Confidence)
		}
	}
	if a.KeyInsights == nil {
		a.KeyInsights = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	if a.TargetAudience == nil {
		a.TargetAudience = []string{}
	}
	if strings.TrimSpace(a.TimeHorizon) == "" {
		a.TimeHorizon = DefaultTimeHorizon
	}
	a.OverallConfidence = clampConfidence(a.OverallConfidence)
	return &a, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c == 0:
		return DefaultConfidence
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
