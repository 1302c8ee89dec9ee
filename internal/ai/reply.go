package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// maxExplanationLen bounds the explanation accepted from a model.
const maxExplanationLen = 4000

// ParseReply decodes raw as exactly one JSON object of the Reply shape.
// Unknown fields, trailing content, markdown fences and malformed factors are
// all rejected; nothing is salvaged from a partially valid body.
func ParseReply(raw string) (Reply, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var r Reply
	if err := dec.Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("%w: decode: %v (raw: %.200s)", ErrInvalidReply, err, raw)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Reply{}, fmt.Errorf("%w: trailing content after JSON object", ErrInvalidReply)
	}

	if err := r.validate(); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrInvalidReply, err)
	}
	r.Explanation = strings.TrimSpace(r.Explanation)
	r.Band = strings.TrimSpace(r.Band)
	return r, nil
}

func (r Reply) validate() error {
	var errs []error
	if r.Score != nil && (math.IsNaN(*r.Score) || math.IsInf(*r.Score, 0)) {
		errs = append(errs, errors.New("score is not finite"))
	}
	for i, f := range r.Factors {
		if strings.TrimSpace(f.Factor) == "" {
			errs = append(errs, fmt.Errorf("factors[%d]: factor is required", i))
		}
		if !f.Impact.Valid() {
			errs = append(errs, fmt.Errorf("factors[%d]: impact %q must be high, medium or low", i, f.Impact))
		}
	}
	if len(r.Explanation) > maxExplanationLen {
		errs = append(errs, fmt.Errorf("explanation longer than %d bytes", maxExplanationLen))
	}
	return errors.Join(errs...)
}
