// Package scoring implements the deterministic priority and risk scoring core:
// feature extraction, the weighted rule engine and band classification. It
// imports nothing from internal/ and performs no I/O, so it can be tested
// without a database or a model provider.
package scoring

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the two scorable entity families. String values match
// the entity_kind column on score_records, score_alerts and batch_jobs.
type Kind string

const (
	KindTrainingNeed Kind = "training_need" // priority variant
	KindScholar      Kind = "scholar"       // risk variant
)

// ParseKind validates a kind taken from a URL or a database row.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindTrainingNeed, KindScholar:
		return k, nil
	default:
		return "", fmt.Errorf("scoring: unknown entity kind %q", s)
	}
}

var (
	// ErrConfigMissing is returned when no active weight config exists for a
	// kind, or the stored document is empty.
	ErrConfigMissing = errors.New("scoring: weight config missing")

	// ErrConfigInvalid wraps every validation failure of a weight config.
	ErrConfigInvalid = errors.New("scoring: weight config invalid")
)

// Band is one named severity tier covering the inclusive range [Min, Max].
type Band struct {
	Name string `json:"name" yaml:"name"`
	Min  int    `json:"min" yaml:"min"`
	Max  int    `json:"max" yaml:"max"`
}

// PriorityWeights configures training-need priority scoring.
type PriorityWeights struct {
	HSE             float64 `json:"hse" yaml:"hse"`
	CompetencyGap   float64 `json:"competency_gap" yaml:"competency_gap"`
	ManagerPriority float64 `json:"manager_priority" yaml:"manager_priority"`
	RoleCriticality float64 `json:"role_criticality" yaml:"role_criticality"`
	Compliance      float64 `json:"compliance" yaml:"compliance"`
	Cost            float64 `json:"cost" yaml:"cost"`

	// Cost contributes fully at or below CostLowThreshold and nothing at or
	// above CostHighThreshold, linearly in between.
	CostLowThreshold  float64 `json:"cost_low_threshold" yaml:"cost_low_threshold"`
	CostHighThreshold float64 `json:"cost_high_threshold" yaml:"cost_high_threshold"`
}

// RiskWeights configures scholar risk scoring.
type RiskWeights struct {
	LowGPA            float64 `json:"low_gpa" yaml:"low_gpa"`
	GPATrend          float64 `json:"gpa_trend" yaml:"gpa_trend"`
	CreditsBehind     float64 `json:"credits_behind" yaml:"credits_behind"`
	FailedModules     float64 `json:"failed_modules" yaml:"failed_modules"`
	FailedCoreModules float64 `json:"failed_core_modules" yaml:"failed_core_modules"`
	Retakes           float64 `json:"retakes" yaml:"retakes"`
	Timeline          float64 `json:"timeline" yaml:"timeline"`
	NegativeEvents    float64 `json:"negative_events" yaml:"negative_events"`

	// GPA thresholds are on the 4.0 scale.
	GPAThresholdLow     float64 `json:"gpa_threshold_low" yaml:"gpa_threshold_low"`
	GPAThresholdWarning float64 `json:"gpa_threshold_warning" yaml:"gpa_threshold_warning"`

	CreditsBehindWarning float64 `json:"credits_behind_warning" yaml:"credits_behind_warning"`
	CreditsBehindSevere  float64 `json:"credits_behind_severe" yaml:"credits_behind_severe"`

	FailedModulesCap  int `json:"failed_modules_cap" yaml:"failed_modules_cap"`
	FailedCoreCap     int `json:"failed_core_cap" yaml:"failed_core_cap"`
	RetakesCap        int `json:"retakes_cap" yaml:"retakes_cap"`
	NegativeEventsCap int `json:"negative_events_cap" yaml:"negative_events_cap"`

	// TimelineLagThreshold is how many percentage points elapsed time may run
	// ahead of completed terms before the timeline factor applies.
	TimelineLagThreshold float64 `json:"timeline_lag_threshold" yaml:"timeline_lag_threshold"`
}

// WeightConfig is one versioned, immutable snapshot of scoring policy for a
// kind. Exactly one of Priority or Risk is set, matching Kind.
//
// DB JSON shape (weight_configs.config):
//
//	{
//	  "kind":    "training_need",
//	  "version": "2025-09",
//	  "priority": {"hse": 30, "competency_gap": 25, ...},
//	  "bands": [{"name":"low","min":0,"max":39}, ...],
//	  "alert_from": "high",
//	  "ai_overrides_score": false
//	}
type WeightConfig struct {
	Kind     Kind             `json:"kind" yaml:"kind"`
	Version  string           `json:"version" yaml:"version"`
	Priority *PriorityWeights `json:"priority,omitempty" yaml:"priority,omitempty"`
	Risk     *RiskWeights     `json:"risk,omitempty" yaml:"risk,omitempty"`
	Bands    []Band           `json:"bands" yaml:"bands"`

	// AlertFrom names the lowest band that raises an alert on an entity's
	// first score.
	AlertFrom string `json:"alert_from" yaml:"alert_from"`

	// AIOverridesScore lets a well-formed model reply replace the rule score.
	AIOverridesScore bool `json:"ai_overrides_score" yaml:"ai_overrides_score"`
}

// Validate checks the whole config and reports every problem at once. The
// returned error always wraps ErrConfigInvalid.
func (c WeightConfig) Validate() error {
	var errs []error

	switch c.Kind {
	case KindTrainingNeed:
		if c.Priority == nil {
			errs = append(errs, errors.New("priority weights required for training_need"))
		}
		if c.Risk != nil {
			errs = append(errs, errors.New("risk weights not allowed for training_need"))
		}
	case KindScholar:
		if c.Risk == nil {
			errs = append(errs, errors.New("risk weights required for scholar"))
		}
		if c.Priority != nil {
			errs = append(errs, errors.New("priority weights not allowed for scholar"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", c.Kind))
	}

	if c.Priority != nil {
		errs = append(errs, c.Priority.validate()...)
	}
	if c.Risk != nil {
		errs = append(errs, c.Risk.validate()...)
	}

	if err := ValidateBands(c.Bands); err != nil {
		errs = append(errs, err)
	} else if Rank(c.Bands, c.AlertFrom) < 0 {
		errs = append(errs, fmt.Errorf("alert_from %q is not a configured band", c.AlertFrom))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
}

func (w PriorityWeights) validate() []error {
	var errs []error
	for name, v := range map[string]float64{
		"hse":              w.HSE,
		"competency_gap":   w.CompetencyGap,
		"manager_priority": w.ManagerPriority,
		"role_criticality": w.RoleCriticality,
		"compliance":       w.Compliance,
		"cost":             w.Cost,
	} {
		errs = append(errs, checkWeight(name, v)...)
	}
	errs = append(errs, checkFinite(map[string]float64{
		"cost_low_threshold":  w.CostLowThreshold,
		"cost_high_threshold": w.CostHighThreshold,
	})...)
	if w.CostLowThreshold < 0 {
		errs = append(errs, fmt.Errorf("cost_low_threshold=%g must be >= 0", w.CostLowThreshold))
	}
	if w.CostHighThreshold <= w.CostLowThreshold {
		errs = append(errs, fmt.Errorf("cost_high_threshold=%g must exceed cost_low_threshold=%g",
			w.CostHighThreshold, w.CostLowThreshold))
	}
	return errs
}

func (w RiskWeights) validate() []error {
	var errs []error
	for name, v := range map[string]float64{
		"low_gpa":             w.LowGPA,
		"gpa_trend":           w.GPATrend,
		"credits_behind":      w.CreditsBehind,
		"failed_modules":      w.FailedModules,
		"failed_core_modules": w.FailedCoreModules,
		"retakes":             w.Retakes,
		"timeline":            w.Timeline,
		"negative_events":     w.NegativeEvents,
	} {
		errs = append(errs, checkWeight(name, v)...)
	}
	errs = append(errs, checkFinite(map[string]float64{
		"gpa_threshold_low":      w.GPAThresholdLow,
		"gpa_threshold_warning":  w.GPAThresholdWarning,
		"credits_behind_warning": w.CreditsBehindWarning,
		"credits_behind_severe":  w.CreditsBehindSevere,
		"timeline_lag_threshold": w.TimelineLagThreshold,
	})...)
	if w.GPAThresholdLow <= 0 || w.GPAThresholdLow > 4 {
		errs = append(errs, fmt.Errorf("gpa_threshold_low=%g out of range (0,4]", w.GPAThresholdLow))
	}
	if w.GPAThresholdWarning < w.GPAThresholdLow || w.GPAThresholdWarning > 4 {
		errs = append(errs, fmt.Errorf("gpa_threshold_warning=%g must be in [gpa_threshold_low,4]", w.GPAThresholdWarning))
	}
	if w.CreditsBehindSevere <= 0 {
		errs = append(errs, fmt.Errorf("credits_behind_severe=%g must be > 0", w.CreditsBehindSevere))
	}
	if w.CreditsBehindWarning < 0 || w.CreditsBehindWarning > w.CreditsBehindSevere {
		errs = append(errs, fmt.Errorf("credits_behind_warning=%g must be in [0,credits_behind_severe]", w.CreditsBehindWarning))
	}
	for name, v := range map[string]int{
		"failed_modules_cap":  w.FailedModulesCap,
		"failed_core_cap":     w.FailedCoreCap,
		"retakes_cap":         w.RetakesCap,
		"negative_events_cap": w.NegativeEventsCap,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s=%d must be > 0", name, v))
		}
	}
	if w.TimelineLagThreshold <= 0 {
		errs = append(errs, fmt.Errorf("timeline_lag_threshold=%g must be > 0", w.TimelineLagThreshold))
	}
	return errs
}

// MaxWeight bounds a single factor weight. A factor at full strength then
// contributes at most the whole score range, and rounding stays in int range.
const MaxWeight = 100

func checkWeight(name string, v float64) []error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return []error{fmt.Errorf("weight %s=%g must be finite", name, v)}
	case v < 0:
		return []error{fmt.Errorf("weight %s=%g must be >= 0", name, v)}
	case v > MaxWeight:
		return []error{fmt.Errorf("weight %s=%g must be <= %d", name, v, MaxWeight)}
	}
	return nil
}

// checkFinite rejects NaN and infinite thresholds, which slip through the
// ordered range checks since every comparison with NaN is false.
func checkFinite(vals map[string]float64) []error {
	var errs []error
	for name, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s=%g must be finite", name, v))
		}
	}
	return errs
}

// Classify maps a score to its band under this config.
func (c WeightConfig) Classify(score int) (Band, error) {
	return Classify(c.Bands, score)
}

// ParseWeightConfig unmarshals a weight_configs.config JSON document, fills a
// content-derived version when none is set and validates the result. Unknown
// fields are rejected so a typo in a weight name cannot silently zero it.
func ParseWeightConfig(raw json.RawMessage) (WeightConfig, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return WeightConfig{}, ErrConfigMissing
	}

	var cfg WeightConfig
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return WeightConfig{}, fmt.Errorf("%w: decode json: %w", ErrConfigInvalid, err)
	}
	return finalize(cfg)
}

// ParseWeightConfigYAML is the YAML counterpart of ParseWeightConfig, used for
// weight files checked into deployment repos and seeded with `seed-weights`.
func ParseWeightConfigYAML(raw []byte) (WeightConfig, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return WeightConfig{}, ErrConfigMissing
	}

	var cfg WeightConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return WeightConfig{}, fmt.Errorf("%w: decode yaml: %w", ErrConfigInvalid, err)
	}
	return finalize(cfg)
}

func finalize(cfg WeightConfig) (WeightConfig, error) {
	if err := cfg.Validate(); err != nil {
		return WeightConfig{}, err
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = ConfigHash(cfg)
	}
	return cfg, nil
}

// ConfigHash returns a stable content hash of the config, ignoring Version.
// It doubles as the config_version for documents saved without one.
func ConfigHash(cfg WeightConfig) string {
	cfg.Version = ""
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", h[:8])
}

// DefaultTrainingNeedConfig returns the shipped priority policy. The weights
// intentionally sum past 100; the engine clamps.
func DefaultTrainingNeedConfig() WeightConfig {
	return WeightConfig{
		Kind:    KindTrainingNeed,
		Version: "default-priority-v1",
		Priority: &PriorityWeights{
			HSE:               30,
			CompetencyGap:     25,
			ManagerPriority:   20,
			RoleCriticality:   15,
			Compliance:        10,
			Cost:              10,
			CostLowThreshold:  1_000,
			CostHighThreshold: 10_000,
		},
		Bands: []Band{
			{Name: "low", Min: 0, Max: 39},
			{Name: "medium", Min: 40, Max: 59},
			{Name: "high", Min: 60, Max: 79},
			{Name: "critical", Min: 80, Max: 100},
		},
		AlertFrom:        "high",
		AIOverridesScore: false,
	}
}

// DefaultScholarConfig returns the shipped risk policy. Weights sum to 100.
func DefaultScholarConfig() WeightConfig {
	return WeightConfig{
		Kind:    KindScholar,
		Version: "default-risk-v1",
		Risk: &RiskWeights{
			LowGPA:            25,
			GPATrend:          10,
			CreditsBehind:     15,
			FailedModules:     10,
			FailedCoreModules: 15,
			Retakes:           5,
			Timeline:          10,
			NegativeEvents:    10,

			GPAThresholdLow:      2.0,
			GPAThresholdWarning:  2.5,
			CreditsBehindWarning: 0.10,
			CreditsBehindSevere:  0.30,
			FailedModulesCap:     3,
			FailedCoreCap:        2,
			RetakesCap:           3,
			NegativeEventsCap:    2,
			TimelineLagThreshold: 20,
		},
		Bands: []Band{
			{Name: "on_track", Min: 0, Max: 24},
			{Name: "watch", Min: 25, Max: 49},
			{Name: "at_risk", Min: 50, Max: 74},
			{Name: "critical", Min: 75, Max: 100},
		},
		AlertFrom:        "at_risk",
		AIOverridesScore: true,
	}
}

// DefaultConfig returns the shipped config for kind.
func DefaultConfig(kind Kind) (WeightConfig, error) {
	switch kind {
	case KindTrainingNeed:
		return DefaultTrainingNeedConfig(), nil
	case KindScholar:
		return DefaultScholarConfig(), nil
	default:
		return WeightConfig{}, fmt.Errorf("scoring: unknown entity kind %q", kind)
	}
}
