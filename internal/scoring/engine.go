package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Impact grades how strongly a single factor applied.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Valid reports whether i is one of the three impact grades.
func (i Impact) Valid() bool {
	return i == ImpactHigh || i == ImpactMedium || i == ImpactLow
}

// Contribution is one line of a score breakdown. Contribution is the points
// the factor added; it is 0 for factors supplied by the model.
type Contribution struct {
	Factor       string `json:"factor"`
	Description  string `json:"description"`
	Impact       Impact `json:"impact"`
	Contribution int    `json:"contribution"`
}

// Result is the rule engine's output before banding.
type Result struct {
	Score         int
	Contributions []Contribution
	Explanation   string
}

// ErrKindMismatch is returned when a factor set is evaluated under a config
// for the other kind.
var ErrKindMismatch = errors.New("scoring: factor set kind does not match config kind")

// Evaluate scores fs under cfg. It is pure: the same inputs always produce the
// same Result, and nothing outside the arguments is read.
func Evaluate(fs FactorSet, cfg WeightConfig) (Result, error) {
	if fs.Kind != cfg.Kind {
		return Result{}, fmt.Errorf("%w: %s vs %s", ErrKindMismatch, fs.Kind, cfg.Kind)
	}

	var contribs []Contribution
	switch fs.Kind {
	case KindTrainingNeed:
		if fs.Training == nil || cfg.Priority == nil {
			return Result{}, fmt.Errorf("scoring: training_need factors or priority weights missing")
		}
		contribs = evaluateTrainingNeed(*fs.Training, *cfg.Priority)
	case KindScholar:
		if fs.Scholar == nil || cfg.Risk == nil {
			return Result{}, fmt.Errorf("scoring: scholar factors or risk weights missing")
		}
		contribs = evaluateScholar(*fs.Scholar, *cfg.Risk)
	default:
		return Result{}, fmt.Errorf("scoring: unknown entity kind %q", fs.Kind)
	}

	total := 0
	for _, c := range contribs {
		total += c.Contribution
	}
	score := clamp(total)

	return Result{
		Score:         score,
		Contributions: contribs,
		Explanation:   summarize(fs.Kind, score, contribs),
	}, nil
}

// breakdown accumulates nonzero contributions in evaluation order.
type breakdown []Contribution

func (b *breakdown) add(factor string, weight, strength float64, description string) {
	if strength <= 0 || weight <= 0 {
		return
	}
	if strength > 1 {
		strength = 1
	}
	points := int(math.Round(weight * strength))
	if points == 0 {
		return
	}
	*b = append(*b, Contribution{
		Factor:       factor,
		Description:  description,
		Impact:       impactOf(strength),
		Contribution: points,
	})
}

func impactOf(strength float64) Impact {
	switch {
	case strength >= 0.8:
		return ImpactHigh
	case strength >= 0.5:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// ─── PRIORITY ─────────────────────────────────────────────────────────────────

func levelStrength(l Level) float64 {
	switch l {
	case LevelHigh:
		return 1
	case LevelMedium:
		return 0.6
	case LevelLow:
		return 0.3
	default:
		return 0
	}
}

func criticalityStrength(c Criticality) float64 {
	switch c {
	case CriticalityCritical:
		return 1
	case CriticalityKey:
		return 0.6
	case CriticalityStandard:
		return 0.3
	default:
		return 0
	}
}

func costStrength(cost, low, high float64) float64 {
	switch {
	case cost <= low:
		return 1
	case cost >= high:
		return 0
	default:
		return (high - cost) / (high - low)
	}
}

func evaluateTrainingNeed(f TrainingNeedFactors, w PriorityWeights) []Contribution {
	var b breakdown

	if f.HSECritical {
		b.add("hse", w.HSE, 1, "HSE-critical training")
	}
	b.add("competency_gap", w.CompetencyGap, levelStrength(f.CompetencyGap),
		fmt.Sprintf("%s competency gap", f.CompetencyGap))
	b.add("manager_priority", w.ManagerPriority, levelStrength(f.ManagerPriority),
		fmt.Sprintf("%s manager priority", f.ManagerPriority))
	b.add("role_criticality", w.RoleCriticality, criticalityStrength(f.RoleCriticality),
		fmt.Sprintf("%s role", f.RoleCriticality))
	if f.ComplianceOverdue {
		b.add("compliance", w.Compliance, 1, "compliance deadline overdue")
	}
	if f.EstimatedCost != nil {
		b.add("cost", w.Cost, costStrength(*f.EstimatedCost, w.CostLowThreshold, w.CostHighThreshold),
			fmt.Sprintf("estimated cost %.2f", *f.EstimatedCost))
	}

	return b
}

// ─── RISK ─────────────────────────────────────────────────────────────────────

func ratio(n, limit int) float64 {
	if n <= 0 || limit <= 0 {
		return 0
	}
	return math.Min(1, float64(n)/float64(limit))
}

func evaluateScholar(f ScholarRiskFactors, w RiskWeights) []Contribution {
	var b breakdown

	if f.NormalizedGPA != nil {
		gpa := *f.NormalizedGPA
		switch {
		case gpa < w.GPAThresholdLow:
			b.add("low_gpa", w.LowGPA, 1,
				fmt.Sprintf("GPA %.2f below %.2f", gpa, w.GPAThresholdLow))
		case gpa < w.GPAThresholdWarning:
			b.add("low_gpa", w.LowGPA, 0.5,
				fmt.Sprintf("GPA %.2f below warning level %.2f", gpa, w.GPAThresholdWarning))
		}
	}

	if f.GPATrend == TrendDeclining {
		b.add("gpa_trend", w.GPATrend, 1, "GPA declining over recent terms")
	}

	if f.CreditsBehind >= w.CreditsBehindWarning && f.CreditsBehind > 0 {
		b.add("credits_behind", w.CreditsBehind, math.Min(1, f.CreditsBehind/w.CreditsBehindSevere),
			fmt.Sprintf("%.0f%% of expected credits outstanding", f.CreditsBehind*100))
	}

	b.add("failed_modules", w.FailedModules, ratio(f.FailedModules, w.FailedModulesCap),
		fmt.Sprintf("%d failed module(s)", f.FailedModules))
	b.add("failed_core_modules", w.FailedCoreModules, ratio(f.FailedCoreModules, w.FailedCoreCap),
		fmt.Sprintf("%d failed core module(s)", f.FailedCoreModules))
	b.add("retakes", w.Retakes, ratio(f.Retakes, w.RetakesCap),
		fmt.Sprintf("%d module retake(s)", f.Retakes))

	if strength, desc := timelineStrength(f, w.TimelineLagThreshold); strength > 0 {
		b.add("timeline", w.Timeline, strength, desc)
	}

	b.add("negative_events", w.NegativeEvents, ratio(f.NegativeEvents, w.NegativeEventsCap),
		fmt.Sprintf("%d negative event(s) on record", f.NegativeEvents))

	return b
}

// timelineStrength is 1 once the planned end date has passed. Otherwise it
// grows from 0.5 to 1 as elapsed time runs ahead of completed terms by one to
// two lag thresholds.
func timelineStrength(f ScholarRiskFactors, lagThreshold float64) (float64, string) {
	if f.TimelineProgress > 100 {
		return 1, fmt.Sprintf("programme overrun: %.0f%% of planned duration elapsed", f.TimelineProgress)
	}
	if f.TotalTerms <= 0 || lagThreshold <= 0 {
		return 0, ""
	}
	termsPct := float64(f.TermsCompleted) / float64(f.TotalTerms) * 100
	lag := f.TimelineProgress - termsPct
	if lag < lagThreshold {
		return 0, ""
	}
	return math.Min(1, lag/(2*lagThreshold)),
		fmt.Sprintf("behind schedule: %.0f%% of time elapsed, %.0f%% of terms completed", f.TimelineProgress, termsPct)
}

// ─── SUMMARY ──────────────────────────────────────────────────────────────────

func summarize(kind Kind, score int, contribs []Contribution) string {
	label := "Priority"
	if kind == KindScholar {
		label = "Risk"
	}
	if len(contribs) == 0 {
		return fmt.Sprintf("%s score %d: no contributing factors.", label, score)
	}

	parts := make([]string, 0, len(contribs))
	for _, c := range contribs {
		parts = append(parts, fmt.Sprintf("%s (+%d)", c.Description, c.Contribution))
	}
	return fmt.Sprintf("%s score %d driven by %s.", label, score, strings.Join(parts, "; "))
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampScore bounds a model-supplied score to [0, 100].
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(int(math.Round(math.Max(-1, math.Min(101, v)))))
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func quote(s string) string { return strconv.Quote(s) }

func itoa(n int) string { return strconv.Itoa(n) }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
