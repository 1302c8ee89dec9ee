package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// AlertType values match the score_alerts.alert_type column.
type AlertType string

const (
	AlertBandEscalation AlertType = "band_escalation" // rank strictly increased
	AlertInitialSevere  AlertType = "initial_severe"  // first score, already concerning
)

// ValidateBands checks that bands form an ordered, contiguous, uniquely named
// integer partition of [0, 100].
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return errors.New("bands: at least one band required")
	}

	var errs []error
	seen := make(map[string]bool, len(bands))
	for idx, b := range bands {
		name := strings.TrimSpace(b.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("bands[%d]: name required", idx))
		case seen[name]:
			errs = append(errs, fmt.Errorf("bands[%d]: duplicate name %q", idx, name))
		}
		seen[name] = true

		if b.Min > b.Max {
			errs = append(errs, fmt.Errorf("bands[%d] %q: min %d > max %d", idx, name, b.Min, b.Max))
		}
		if idx == 0 && b.Min != 0 {
			errs = append(errs, fmt.Errorf("bands[0] %q: must start at 0, got %d", name, b.Min))
		}
		if idx > 0 && b.Min != bands[idx-1].Max+1 {
			errs = append(errs, fmt.Errorf("bands[%d] %q: min %d does not follow previous max %d",
				idx, name, b.Min, bands[idx-1].Max))
		}
	}
	if last := bands[len(bands)-1]; last.Max != 100 {
		errs = append(errs, fmt.Errorf("bands: last band %q must end at 100, got %d", last.Name, last.Max))
	}

	return errors.Join(errs...)
}

// Classify scans bands in ascending order and returns the first whose upper
// bound is >= score. Scores outside [0, 100] are rejected.
func Classify(bands []Band, score int) (Band, error) {
	if score < 0 || score > 100 {
		return Band{}, fmt.Errorf("scoring: score %d outside [0,100]", score)
	}
	for _, b := range bands {
		if score <= b.Max {
			return b, nil
		}
	}
	return Band{}, fmt.Errorf("%w: no band covers score %d", ErrConfigInvalid, score)
}

// Rank returns the severity rank (ordinal position) of the named band, or -1
// if the name is not configured.
func Rank(bands []Band, name string) int {
	for idx, b := range bands {
		if b.Name == name {
			return idx
		}
	}
	return -1
}

// DetectAlert decides whether moving to next warrants an alert.
//
// previous is the band of the entity's latest non-override record; empty
// means the entity has never been scored. A previous band that the current
// config does not know (vocabulary changed between versions) cannot be ranked,
// so it is judged like a first score against alertFrom.
func DetectAlert(bands []Band, alertFrom, previous, next string) (AlertType, bool) {
	nextRank := Rank(bands, next)
	if nextRank < 0 {
		return "", false
	}

	prevRank := -1
	if previous != "" {
		prevRank = Rank(bands, previous)
	}

	if prevRank >= 0 {
		if nextRank > prevRank {
			return AlertBandEscalation, true
		}
		return "", false
	}

	threshold := Rank(bands, alertFrom)
	if threshold < 0 || nextRank < threshold {
		return "", false
	}
	if previous == "" {
		return AlertInitialSevere, true
	}
	return AlertBandEscalation, true
}
