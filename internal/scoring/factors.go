package scoring

// ─── ENUMERATIONS ─────────────────────────────────────────────────────────────

// Level grades a competency gap or a manager priority.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
	LevelNone   Level = "none" // competency gap only
)

// Criticality grades how critical the employee's role is.
type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityKey      Criticality = "key"
	CriticalityStandard Criticality = "standard"
)

// Trend is the direction of a scholar's recent term GPAs.
type Trend string

const (
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
)

// ─── FACTOR SETS ──────────────────────────────────────────────────────────────

// TrainingNeedFactors is the canonical input of the priority variant.
type TrainingNeedFactors struct {
	HSECritical       bool        `json:"hse_critical"`
	CompetencyGap     Level       `json:"competency_gap"`
	ManagerPriority   Level       `json:"manager_priority"`
	RoleCriticality   Criticality `json:"role_criticality"`
	ComplianceOverdue bool        `json:"compliance_overdue"`

	// EstimatedCost is nil when the item carries no usable cost; the cost
	// factor then contributes nothing.
	EstimatedCost *float64 `json:"estimated_cost"`

	TrainingType     string `json:"training_type,omitempty"`
	TrainingLocation string `json:"training_location,omitempty"`
}

// ScholarRiskFactors is the canonical input of the risk variant.
type ScholarRiskFactors struct {
	// NormalizedGPA is on the 4.0 scale; nil when the scholar has no GPA yet.
	NormalizedGPA *float64 `json:"normalized_gpa"`
	GPATrend      Trend    `json:"gpa_trend"`

	// CreditsBehind is (expected - completed) / expected, never negative.
	CreditsBehind     float64 `json:"credits_behind"`
	FailedModules     int     `json:"failed_modules"`
	FailedCoreModules int     `json:"failed_core_modules"`
	Retakes           int     `json:"retakes"`

	// TimelineProgress is the percentage of the programme's planned duration
	// elapsed; above 100 once the expected end date has passed.
	TimelineProgress float64 `json:"timeline_progress"`
	NegativeEvents   int     `json:"negative_events"`
	TermsCompleted   int     `json:"terms_completed"`
	TotalTerms       int     `json:"total_terms"`
}

// FactorSet is a tagged union: exactly one of Training or Scholar is set,
// matching Kind. It is built once per scoring pass and never mutated.
type FactorSet struct {
	Kind     Kind                 `json:"kind"`
	Training *TrainingNeedFactors `json:"training_need,omitempty"`
	Scholar  *ScholarRiskFactors  `json:"scholar,omitempty"`
}

// TrainingNeedSet wraps f as a FactorSet.
func TrainingNeedSet(f TrainingNeedFactors) FactorSet {
	return FactorSet{Kind: KindTrainingNeed, Training: &f}
}

// ScholarSet wraps f as a FactorSet.
func ScholarSet(f ScholarRiskFactors) FactorSet {
	return FactorSet{Kind: KindScholar, Scholar: &f}
}
