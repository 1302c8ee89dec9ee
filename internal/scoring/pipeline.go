package scoring

// RuleModelVersion is stamped on records whose score and explanation came
// from the rule engine alone.
const RuleModelVersion = "rules/v1"

// Assessment is the pure pipeline's output: a scored, banded, explained
// result ready for optional enrichment and persistence.
type Assessment struct {
	Kind          Kind
	Score         int
	Band          string
	Contributions []Contribution
	Explanation   string
	ModelVersion  string
	ConfigVersion string
}

// Assess runs RuleEngine then BandClassifier. It performs no I/O and reads no
// clock, so it is safe to call from tests and property checks directly.
func Assess(fs FactorSet, cfg WeightConfig) (Assessment, error) {
	res, err := Evaluate(fs, cfg)
	if err != nil {
		return Assessment{}, err
	}
	band, err := cfg.Classify(res.Score)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Kind:          fs.Kind,
		Score:         res.Score,
		Band:          band.Name,
		Contributions: res.Contributions,
		Explanation:   res.Explanation,
		ModelVersion:  RuleModelVersion,
		ConfigVersion: cfg.Version,
	}, nil
}

// Clone returns a deep copy so enrichment never aliases the rule result.
func (a Assessment) Clone() Assessment {
	out := a
	if a.Contributions != nil {
		out.Contributions = make([]Contribution, len(a.Contributions))
		copy(out.Contributions, a.Contributions)
	}
	return out
}
