package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

func factorNames(cs []scoring.Contribution) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Factor)
	}
	return out
}

func findContribution(cs []scoring.Contribution, factor string) (scoring.Contribution, bool) {
	for _, c := range cs {
		if c.Factor == factor {
			return c, true
		}
	}
	return scoring.Contribution{}, false
}

// ─── Priority variant ─────────────────────────────────────────────────────────

func TestAssess_TrainingNeedWorkedExample(t *testing.T) {
	fs := scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
		HSECritical:       true,
		CompetencyGap:     scoring.LevelNone,
		ManagerPriority:   scoring.LevelHigh,
		RoleCriticality:   scoring.CriticalityStandard,
		ComplianceOverdue: true,
		EstimatedCost:     ptr(450.0),
	})

	a, err := scoring.Assess(fs, scoring.DefaultTrainingNeedConfig())
	require.NoError(t, err)

	// 30 hse + 20 manager + round(15*0.3)=5 role + 10 compliance + 10 cost
	assert.Equal(t, 75, a.Score)
	assert.Equal(t, "high", a.Band)
	assert.Equal(t,
		[]string{"hse", "manager_priority", "role_criticality", "compliance", "cost"},
		factorNames(a.Contributions))
	assert.Equal(t, scoring.RuleModelVersion, a.ModelVersion)
	assert.Equal(t, "default-priority-v1", a.ConfigVersion)

	role, _ := findContribution(a.Contributions, "role_criticality")
	assert.Equal(t, scoring.ImpactLow, role.Impact)
	hse, _ := findContribution(a.Contributions, "hse")
	assert.Equal(t, scoring.ImpactHigh, hse.Impact)

	assert.Contains(t, a.Explanation, "Priority score 75")
	assert.Contains(t, a.Explanation, "HSE-critical training (+30)")
}

func TestAssess_TrainingNeedCriticalRole(t *testing.T) {
	fs := scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
		HSECritical:       true,
		CompetencyGap:     scoring.LevelNone,
		ManagerPriority:   scoring.LevelHigh,
		RoleCriticality:   scoring.CriticalityCritical,
		ComplianceOverdue: true,
		EstimatedCost:     ptr(999.0),
	})
	a, err := scoring.Assess(fs, scoring.DefaultTrainingNeedConfig())
	require.NoError(t, err)
	assert.Equal(t, 85, a.Score)
	assert.Equal(t, "critical", a.Band)
}

func TestEvaluate_CostIsLinearBetweenThresholds(t *testing.T) {
	cfg := scoring.DefaultTrainingNeedConfig() // cost 10, thresholds 1000..10000

	tests := []struct {
		cost    float64
		want    int
		present bool
		impact  scoring.Impact
	}{
		{0, 10, true, scoring.ImpactHigh},
		{1000, 10, true, scoring.ImpactHigh},
		{5500, 5, true, scoring.ImpactMedium},
		{8200, 2, true, scoring.ImpactLow},
		{10000, 0, false, ""},
		{50000, 0, false, ""},
	}
	for _, tt := range tests {
		fs := scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
			CompetencyGap:   scoring.LevelNone,
			ManagerPriority: scoring.LevelLow,
			RoleCriticality: scoring.CriticalityStandard,
			EstimatedCost:   ptr(tt.cost),
		})
		res, err := scoring.Evaluate(fs, cfg)
		require.NoError(t, err)

		c, ok := findContribution(res.Contributions, "cost")
		assert.Equal(t, tt.present, ok, "cost=%v", tt.cost)
		if ok {
			assert.Equal(t, tt.want, c.Contribution, "cost=%v", tt.cost)
			assert.Equal(t, tt.impact, c.Impact, "cost=%v", tt.cost)
		}
	}
}

func TestEvaluate_ClampsToHundred(t *testing.T) {
	cfg := scoring.DefaultTrainingNeedConfig()
	cfg.Priority.HSE = 90
	cfg.Priority.CompetencyGap = 90

	res, err := scoring.Evaluate(scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
		HSECritical:   true,
		CompetencyGap: scoring.LevelHigh,
	}), cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
}

func TestEvaluate_NoFactors(t *testing.T) {
	res, err := scoring.Evaluate(scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
		CompetencyGap: scoring.LevelNone,
	}), scoring.DefaultTrainingNeedConfig())
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Contributions)
	assert.Equal(t, "Priority score 0: no contributing factors.", res.Explanation)
}

func TestEvaluate_KindMismatch(t *testing.T) {
	_, err := scoring.Evaluate(
		scoring.ScholarSet(scoring.ScholarRiskFactors{}),
		scoring.DefaultTrainingNeedConfig(),
	)
	assert.ErrorIs(t, err, scoring.ErrKindMismatch)
}

// ─── Risk variant ─────────────────────────────────────────────────────────────

func TestAssess_ScholarLowGPA(t *testing.T) {
	f, _ := scoring.ExtractScholar(scoring.ScholarInput{CumulativeGPA: ptr(1.8)}, asOf)

	a, err := scoring.Assess(scoring.ScholarSet(f), scoring.DefaultScholarConfig())
	require.NoError(t, err)

	c, ok := findContribution(a.Contributions, "low_gpa")
	require.True(t, ok, "low_gpa contribution expected")
	assert.Equal(t, scoring.ImpactHigh, c.Impact)
	assert.Equal(t, 25, c.Contribution)
	assert.NotEqual(t, "on_track", a.Band)
}

func TestAssess_ScholarWarningGPA(t *testing.T) {
	a, err := scoring.Assess(scoring.ScholarSet(scoring.ScholarRiskFactors{
		NormalizedGPA: ptr(2.3),
		GPATrend:      scoring.TrendStable,
	}), scoring.DefaultScholarConfig())
	require.NoError(t, err)

	c, ok := findContribution(a.Contributions, "low_gpa")
	require.True(t, ok)
	assert.Equal(t, scoring.ImpactMedium, c.Impact)
	assert.Equal(t, 13, c.Contribution) // round(25 * 0.5)
	assert.Equal(t, "on_track", a.Band)
}

func TestEvaluate_ScholarFullBreakdown(t *testing.T) {
	f := scoring.ScholarRiskFactors{
		NormalizedGPA:     ptr(1.5),
		GPATrend:          scoring.TrendDeclining,
		CreditsBehind:     0.15,
		FailedModules:     5,
		FailedCoreModules: 1,
		Retakes:           0,
		TimelineProgress:  60,
		NegativeEvents:    1,
		TermsCompleted:    1,
		TotalTerms:        4,
	}
	res, err := scoring.Evaluate(scoring.ScholarSet(f), scoring.DefaultScholarConfig())
	require.NoError(t, err)

	want := map[string]int{
		"low_gpa":             25,
		"gpa_trend":           10,
		"credits_behind":      8, // round(15 * 0.15/0.30)
		"failed_modules":      10,
		"failed_core_modules": 8, // round(15 * 1/2)
		"timeline":            9, // lag 35 of threshold 20: round(10 * 35/40)
		"negative_events":     5,
	}
	got := map[string]int{}
	sum := 0
	for _, c := range res.Contributions {
		got[c.Factor] = c.Contribution
		sum += c.Contribution
	}
	assert.Equal(t, want, got)
	assert.Equal(t, sum, res.Score)
	assert.Equal(t, 75, res.Score)
}

func TestEvaluate_ScholarCreditsBelowWarning(t *testing.T) {
	res, err := scoring.Evaluate(scoring.ScholarSet(scoring.ScholarRiskFactors{
		CreditsBehind: 0.05,
	}), scoring.DefaultScholarConfig())
	require.NoError(t, err)
	_, ok := findContribution(res.Contributions, "credits_behind")
	assert.False(t, ok)
}

func TestEvaluate_ScholarTimelineOverrun(t *testing.T) {
	res, err := scoring.Evaluate(scoring.ScholarSet(scoring.ScholarRiskFactors{
		TimelineProgress: 112,
		TermsCompleted:   8,
		TotalTerms:       8,
	}), scoring.DefaultScholarConfig())
	require.NoError(t, err)

	c, ok := findContribution(res.Contributions, "timeline")
	require.True(t, ok)
	assert.Equal(t, 10, c.Contribution)
	assert.Equal(t, scoring.ImpactHigh, c.Impact)
}

// ─── Properties ───────────────────────────────────────────────────────────────

func TestAssess_BoundedAndDeterministic_TrainingNeed(t *testing.T) {
	cfg := scoring.DefaultTrainingNeedConfig()
	costs := []*float64{nil, ptr(0.0), ptr(4000.0), ptr(20000.0)}

	for _, hse := range []bool{false, true} {
		for _, gap := range []scoring.Level{scoring.LevelHigh, scoring.LevelMedium, scoring.LevelLow, scoring.LevelNone} {
			for _, mgr := range []scoring.Level{scoring.LevelHigh, scoring.LevelMedium, scoring.LevelLow} {
				for _, role := range []scoring.Criticality{scoring.CriticalityCritical, scoring.CriticalityKey, scoring.CriticalityStandard} {
					for _, overdue := range []bool{false, true} {
						for _, cost := range costs {
							fs := scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
								HSECritical:       hse,
								CompetencyGap:     gap,
								ManagerPriority:   mgr,
								RoleCriticality:   role,
								ComplianceOverdue: overdue,
								EstimatedCost:     cost,
							})
							a1, err := scoring.Assess(fs, cfg)
							require.NoError(t, err)
							a2, err := scoring.Assess(fs, cfg)
							require.NoError(t, err)

							require.Equal(t, a1, a2)
							require.GreaterOrEqual(t, a1.Score, 0)
							require.LessOrEqual(t, a1.Score, 100)

							b, err := cfg.Classify(a1.Score)
							require.NoError(t, err)
							require.Equal(t, b.Name, a1.Band)
						}
					}
				}
			}
		}
	}
}

func TestAssess_BoundedAndDeterministic_Scholar(t *testing.T) {
	cfg := scoring.DefaultScholarConfig()
	gpas := []*float64{nil, ptr(0.0), ptr(1.9), ptr(2.4), ptr(3.8)}

	for _, gpa := range gpas {
		for _, trend := range []scoring.Trend{scoring.TrendDeclining, scoring.TrendStable, scoring.TrendImproving} {
			for _, behind := range []float64{0, 0.1, 0.5, 1} {
				for _, n := range []int{0, 1, 10} {
					for _, progress := range []float64{0, 50, 150} {
						fs := scoring.ScholarSet(scoring.ScholarRiskFactors{
							NormalizedGPA:     gpa,
							GPATrend:          trend,
							CreditsBehind:     behind,
							FailedModules:     n,
							FailedCoreModules: n,
							Retakes:           n,
							TimelineProgress:  progress,
							NegativeEvents:    n,
							TermsCompleted:    n,
							TotalTerms:        8,
						})
						a1, err := scoring.Assess(fs, cfg)
						require.NoError(t, err)
						a2, err := scoring.Assess(fs, cfg)
						require.NoError(t, err)

						require.Equal(t, a1, a2)
						require.GreaterOrEqual(t, a1.Score, 0)
						require.LessOrEqual(t, a1.Score, 100)
					}
				}
			}
		}
	}
}

func TestAssessment_CloneDoesNotAlias(t *testing.T) {
	a, err := scoring.Assess(scoring.TrainingNeedSet(scoring.TrainingNeedFactors{
		HSECritical: true,
	}), scoring.DefaultTrainingNeedConfig())
	require.NoError(t, err)

	c := a.Clone()
	c.Contributions[0].Description = "changed"
	assert.NotEqual(t, "changed", a.Contributions[0].Description)
}
