package scoring

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Issue records one coercion the extractor applied to a malformed or missing
// source field. Issues never fail extraction; callers log them.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// hseKeywords mark a competency or course as health-and-safety critical when
// found in its name or category.
var hseKeywords = []string{
	"hse",
	"safety",
	"health",
	"environment",
	"fire",
	"first aid",
	"hazard",
	"h2s",
	"confined space",
	"working at height",
}

// negativeEventTypes are the scholar event types counted as negative.
var negativeEventTypes = map[string]bool{
	"suspension":       true,
	"warning":          true,
	"probation":        true,
	"academic_warning": true,
}

const (
	defaultGPAScale = 4.0
	trendWindow     = 3   // most recent term GPAs considered
	trendDelta      = 0.3 // on the 4.0 scale
)

// ─── TRAINING NEED ────────────────────────────────────────────────────────────

// TrainingNeedInput is the joined source row for one training-need item.
// Field types are plain Go types so the db package is not imported here.
type TrainingNeedInput struct {
	CompetencyGapLevel string
	ManagerPriority    string
	RoleCriticality    string
	ComplianceDueDate  *time.Time
	EstimatedCost      *float64
	TrainingType       string
	TrainingLocation   string

	CompetencyName     string
	CompetencyCategory string
	CourseName         string
	CourseCategory     string
	CourseMandatory    bool
}

// ExtractTrainingNeed builds the priority factor set. asOf is the instant the
// compliance due date is compared against.
func ExtractTrainingNeed(in TrainingNeedInput, asOf time.Time) (TrainingNeedFactors, []Issue) {
	var issues []Issue

	f := TrainingNeedFactors{
		HSECritical:      in.CourseMandatory || containsHSEKeyword(in.CompetencyName, in.CompetencyCategory, in.CourseName, in.CourseCategory),
		TrainingType:     strings.TrimSpace(in.TrainingType),
		TrainingLocation: strings.TrimSpace(in.TrainingLocation),
	}

	switch lvl := Level(normalize(in.CompetencyGapLevel)); lvl {
	case LevelHigh, LevelMedium, LevelLow, LevelNone:
		f.CompetencyGap = lvl
	case "":
		f.CompetencyGap = LevelNone
		issues = append(issues, Issue{Field: "competency_gap_level", Reason: "missing, defaulted to none"})
	default:
		f.CompetencyGap = LevelNone
		issues = append(issues, Issue{Field: "competency_gap_level", Reason: "unknown value " + quote(in.CompetencyGapLevel) + ", defaulted to none"})
	}

	switch lvl := Level(normalize(in.ManagerPriority)); lvl {
	case LevelHigh, LevelMedium, LevelLow:
		f.ManagerPriority = lvl
	case "":
		f.ManagerPriority = LevelLow
		issues = append(issues, Issue{Field: "manager_priority", Reason: "missing, defaulted to low"})
	default:
		f.ManagerPriority = LevelLow
		issues = append(issues, Issue{Field: "manager_priority", Reason: "unknown value " + quote(in.ManagerPriority) + ", defaulted to low"})
	}

	switch c := Criticality(normalize(in.RoleCriticality)); c {
	case CriticalityCritical, CriticalityKey, CriticalityStandard:
		f.RoleCriticality = c
	case "":
		f.RoleCriticality = CriticalityStandard
		issues = append(issues, Issue{Field: "role_criticality", Reason: "missing, defaulted to standard"})
	default:
		f.RoleCriticality = CriticalityStandard
		issues = append(issues, Issue{Field: "role_criticality", Reason: "unknown value " + quote(in.RoleCriticality) + ", defaulted to standard"})
	}

	if in.ComplianceDueDate != nil {
		f.ComplianceOverdue = in.ComplianceDueDate.Before(asOf)
	}

	switch {
	case in.EstimatedCost == nil:
		// Not every item is costed; absence is not an issue.
	case math.IsNaN(*in.EstimatedCost) || math.IsInf(*in.EstimatedCost, 0) || *in.EstimatedCost < 0:
		issues = append(issues, Issue{Field: "estimated_cost", Reason: "not a non-negative number, ignored"})
	default:
		cost := *in.EstimatedCost
		f.EstimatedCost = &cost
	}

	return f, issues
}

func containsHSEKeyword(fields ...string) bool {
	for _, field := range fields {
		field = strings.ToLower(field)
		if field == "" {
			continue
		}
		for _, kw := range hseKeywords {
			if strings.Contains(field, kw) {
				return true
			}
		}
	}
	return false
}

// ─── SCHOLAR ──────────────────────────────────────────────────────────────────

// TermInput is one academic term of a scholar.
type TermInput struct {
	Number    int
	GPA       *float64 // on the scholar's own scale
	Completed bool
}

// ModuleInput is one module attempt of a scholar.
type ModuleInput struct {
	Code    string
	Core    bool
	Failed  bool
	Attempt int // 1 for a first sitting
}

// ScholarInput is the joined source data for one scholar.
type ScholarInput struct {
	CumulativeGPA        *float64
	GPAScale             *float64
	CurrentTerm          int
	TotalTerms           int
	TotalCreditsRequired *float64
	CreditsCompleted     *float64
	StartDate            *time.Time
	ExpectedEndDate      *time.Time

	Terms      []TermInput
	Modules    []ModuleInput
	EventTypes []string
}

// ExtractScholar builds the risk factor set. asOf is the instant timeline
// progress is measured at.
func ExtractScholar(in ScholarInput, asOf time.Time) (ScholarRiskFactors, []Issue) {
	var issues []Issue
	var f ScholarRiskFactors

	scale := defaultGPAScale
	if in.GPAScale != nil {
		if s := *in.GPAScale; s > 0 && !math.IsInf(s, 0) {
			scale = s
		} else {
			issues = append(issues, Issue{Field: "gpa_scale", Reason: "not positive, defaulted to 4.0"})
		}
	}

	if in.CumulativeGPA != nil {
		if g, ok := normalizeGPA(*in.CumulativeGPA, scale); ok {
			f.NormalizedGPA = &g
		} else {
			issues = append(issues, Issue{Field: "cumulative_gpa", Reason: "outside [0,scale], ignored"})
		}
	}

	var trendIssues []Issue
	f.GPATrend, trendIssues = gpaTrend(in.Terms, scale)
	issues = append(issues, trendIssues...)

	var creditIssues []Issue
	f.CreditsBehind, creditIssues = creditsBehind(in)
	issues = append(issues, creditIssues...)

	for _, m := range in.Modules {
		if m.Failed {
			f.FailedModules++
			if m.Core {
				f.FailedCoreModules++
			}
		}
		if m.Attempt > 1 {
			f.Retakes += m.Attempt - 1
		}
	}

	f.TimelineProgress = timelineProgress(in.StartDate, in.ExpectedEndDate, asOf)
	if in.StartDate != nil && in.ExpectedEndDate != nil && !in.ExpectedEndDate.After(*in.StartDate) {
		issues = append(issues, Issue{Field: "expected_end_date", Reason: "not after start date, timeline ignored"})
	}

	for _, t := range in.EventTypes {
		if negativeEventTypes[normalize(t)] {
			f.NegativeEvents++
		}
	}

	for _, t := range in.Terms {
		if t.Completed {
			f.TermsCompleted++
		}
	}
	if in.TotalTerms < 0 {
		issues = append(issues, Issue{Field: "total_terms", Reason: "negative, defaulted to 0"})
	} else {
		f.TotalTerms = in.TotalTerms
	}

	return f, issues
}

func normalizeGPA(gpa, scale float64) (float64, bool) {
	if math.IsNaN(gpa) || gpa < 0 || gpa > scale {
		return 0, false
	}
	return round(gpa/scale*defaultGPAScale, 2), true
}

// gpaTrend compares the first and last of the most recent term GPAs, ordered
// by term number.
func gpaTrend(terms []TermInput, scale float64) (Trend, []Issue) {
	type point struct {
		number int
		gpa    float64
	}

	var issues []Issue
	points := make([]point, 0, len(terms))
	for _, t := range terms {
		if t.GPA == nil {
			continue
		}
		g, ok := normalizeGPA(*t.GPA, scale)
		if !ok {
			issues = append(issues, Issue{Field: "term_gpa", Reason: "term " + itoa(t.Number) + " outside [0,scale], ignored"})
			continue
		}
		points = append(points, point{number: t.Number, gpa: g})
	}

	sort.SliceStable(points, func(a, b int) bool { return points[a].number < points[b].number })
	if len(points) > trendWindow {
		points = points[len(points)-trendWindow:]
	}
	if len(points) < 2 {
		return TrendStable, issues
	}

	delta := round(points[len(points)-1].gpa-points[0].gpa, 2)
	switch {
	case delta < -trendDelta:
		return TrendDeclining, issues
	case delta > trendDelta:
		return TrendImproving, issues
	default:
		return TrendStable, issues
	}
}

func creditsBehind(in ScholarInput) (float64, []Issue) {
	if in.TotalTerms <= 0 || in.CurrentTerm <= 0 || in.TotalCreditsRequired == nil || *in.TotalCreditsRequired <= 0 {
		return 0, nil
	}

	var issues []Issue
	current := in.CurrentTerm
	if current > in.TotalTerms {
		current = in.TotalTerms
		issues = append(issues, Issue{Field: "current_term", Reason: "exceeds total_terms, capped"})
	}

	expected := float64(current) / float64(in.TotalTerms) * *in.TotalCreditsRequired
	completed := 0.0
	if in.CreditsCompleted != nil && *in.CreditsCompleted > 0 {
		completed = *in.CreditsCompleted
	}

	behind := (expected - completed) / expected
	if behind < 0 {
		behind = 0
	}
	return round(behind, 4), issues
}

func timelineProgress(start, end *time.Time, asOf time.Time) float64 {
	if start == nil || end == nil || !end.After(*start) {
		return 0
	}
	elapsed := asOf.Sub(*start)
	if elapsed <= 0 {
		return 0
	}
	return round(float64(elapsed)/float64(end.Sub(*start))*100, 2)
}
