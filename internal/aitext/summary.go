// Package aitext turns free-form model output into structured values.
// Every parser here is total: unexpected shapes degrade to a fallback
// rather than an error, except where a missing JSON object makes the
// result meaningless.
package aitext

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Section identifies a known block of the summary template
type Section int

const (
	SectionNone Section = iota
	SectionTitle
	SectionExecutive
	SectionKeyPoints
	SectionAnalysis
	SectionRecommendations
	SectionKPIs
	SectionTimeline
)

// Headings the prompt asks for, followed by the Arabic forms older prompts
// produced. Matching is case-insensitive on the trimmed heading.
var sectionNames = map[string]Section{
	"summary title":  SectionTitle,
	"title":          SectionTitle,
	"العنوان الملخص": SectionTitle,

	"executive summary": SectionExecutive,
	"ملخص تنفيذي":       SectionExecutive,

	"key points":      SectionKeyPoints,
	"النقاط الرئيسية": SectionKeyPoints,

	"strategic analysis":  SectionAnalysis,
	"التحليل الاستراتيجي": SectionAnalysis,

	"recommendations":           SectionRecommendations,
	"executive recommendations": SectionRecommendations,
	"التوصيات التنفيذية":        SectionRecommendations,

	"kpis":                              SectionKPIs,
	"key performance indicators":        SectionKPIs,
	"key performance indicators (kpis)": SectionKPIs,
	"المؤشرات الرئيسية للأداء":        SectionKPIs,
	"المؤشرات الرئيسية للأداء (kpis)": SectionKPIs,

	"timeline":          SectionTimeline,
	"expected timeline": SectionTimeline,
	"الجدول الزمني المتوقع": SectionTimeline,
}

// SectionFor maps a heading (without the leading "## ") to its section
func SectionFor(heading string) Section {
	return sectionNames[strings.ToLower(strings.TrimSpace(heading))]
}

var (
	numberedRe     = regexp.MustCompile(`^\d+\.`)
	bulletPrefixRe = regexp.MustCompile(`^[-•\d.\s*]+`)
)

// SummaryDoc structured summary extracted from model output
type SummaryDoc struct {
	Title             string   `json:"-"`
	Body              string   `json:"-"`
	ExecutiveSummary  string   `json:"executiveSummary"`
	KeyPoints         []string `json:"keyPoints"`
	StrategicAnalysis string   `json:"strategicAnalysis"`
	Recommendations   string   `json:"recommendations"`
	KPIs              string   `json:"kpis"`
	Timeline          string   `json:"timeline"`
	// Parsed is false when no body could be assembled from sections
	Parsed bool `json:"-"`
}

// ParseSummary scans raw line by line. Unknown sections are ignored and
// a response without usable sections yields Body = raw and the fallback
// title.
func ParseSummary(raw, fallbackTitle string) SummaryDoc {
	doc := SummaryDoc{Title: fallbackTitle, KeyPoints: []string{}}

	current := SectionNone
	inSection := false
	var lines []string

	flush := func() {
		if inSection && len(lines) > 0 {
			doc.assign(current, lines)
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = SectionFor(heading)
			inSection = true
			lines = lines[:0]
			continue
		}
		if keepLine(line) {
			lines = append(lines, line)
		}
	}
	flush()

	body := doc.ExecutiveSummary
	if doc.StrategicAnalysis != "" {
		body += "\n\n" + doc.StrategicAnalysis
	}
	if doc.Recommendations != "" {
		body += "\n\n" + doc.Recommendations
	}

	if body == "" {
		doc.Body = raw
		doc.Title = fallbackTitle
		return doc
	}
	doc.Body = body
	doc.Parsed = true
	return doc
}

func keepLine(line string) bool {
	switch {
	case strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
		return true
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "• "), strings.HasPrefix(line, "* "):
		return true
	case numberedRe.MatchString(line):
		return true
	}
	return utf8.RuneCountInString(line) > 10 && !strings.HasPrefix(line, "#")
}

func (d *SummaryDoc) assign(s Section, lines []string) {
	content := strings.TrimSpace(strings.Join(lines, " "))
	switch s {
	case SectionTitle:
		d.Title = content
	case SectionExecutive:
		d.ExecutiveSummary = content
	case SectionKeyPoints:
		points := make([]string, 0, len(lines))
		for _, l := range lines {
			if p := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(l, "")); p != "" {
				points = append(points, p)
			}
		}
		d.KeyPoints = points
	case SectionAnalysis:
		d.StrategicAnalysis = content
	case SectionRecommendations:
		d.Recommendations = content
	case SectionKPIs:
		d.KPIs = content
	case SectionTimeline:
		d.Timeline = content
	}
}

// WordCount counts whitespace separated words
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
