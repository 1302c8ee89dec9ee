package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

// ActiveWeightConfig loads and validates the active config for kind. A
// missing row surfaces as scoring.ErrConfigMissing; a malformed document as
// scoring.ErrConfigInvalid.
func (s *Store) ActiveWeightConfig(ctx context.Context, kind scoring.Kind) (scoring.WeightConfig, error) {
	row, err := s.q.GetActiveWeightConfig(ctx, db.EntityKind(kind))
	if errors.Is(err, sql.ErrNoRows) {
		return scoring.WeightConfig{}, fmt.Errorf("ActiveWeightConfig %s: %w", kind, scoring.ErrConfigMissing)
	}
	if err != nil {
		return scoring.WeightConfig{}, fmt.Errorf("ActiveWeightConfig %s: %w", kind, err)
	}

	cfg, err := decodeWeightConfig(kind, row)
	if err != nil {
		return scoring.WeightConfig{}, fmt.Errorf("ActiveWeightConfig: %w", err)
	}
	return cfg, nil
}

// WeightConfigVersion loads the stored config for (kind, version), active or
// not. Resumed batch runs use it to keep scoring against their snapshot.
func (s *Store) WeightConfigVersion(ctx context.Context, kind scoring.Kind, version string) (scoring.WeightConfig, error) {
	row, err := s.q.GetWeightConfigByVersion(ctx, db.GetWeightConfigByVersionParams{
		EntityKind: db.EntityKind(kind),
		Version:    version,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return scoring.WeightConfig{}, fmt.Errorf("WeightConfigVersion %s %s: %w", kind, version, scoring.ErrConfigMissing)
	}
	if err != nil {
		return scoring.WeightConfig{}, fmt.Errorf("WeightConfigVersion %s %s: %w", kind, version, err)
	}

	cfg, err := decodeWeightConfig(kind, row)
	if err != nil {
		return scoring.WeightConfig{}, fmt.Errorf("WeightConfigVersion: %w", err)
	}
	return cfg, nil
}

func decodeWeightConfig(kind scoring.Kind, row db.WeightConfig) (scoring.WeightConfig, error) {
	cfg, err := scoring.ParseWeightConfig(row.Config)
	if err != nil {
		return scoring.WeightConfig{}, fmt.Errorf("%s (%s): %w", kind, row.Version, err)
	}
	if cfg.Kind != kind {
		return scoring.WeightConfig{}, fmt.Errorf("%s: document kind %q: %w", kind, cfg.Kind, scoring.ErrConfigInvalid)
	}
	// Documents saved without a version are stored under their hash.
	cfg.Version = row.Version
	return cfg, nil
}

// SaveWeightConfig validates cfg and upserts it by (kind, version). When
// activate is set the previously active config for the kind is deactivated
// in the same transaction.
func (s *Store) SaveWeightConfig(ctx context.Context, cfg scoring.WeightConfig, activate bool) (db.WeightConfig, error) {
	if err := cfg.Validate(); err != nil {
		return db.WeightConfig{}, fmt.Errorf("SaveWeightConfig: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = scoring.ConfigHash(cfg)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return db.WeightConfig{}, fmt.Errorf("SaveWeightConfig: marshal: %w", err)
	}

	var saved db.WeightConfig
	err = s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		row, err := q.UpsertWeightConfig(ctx, db.UpsertWeightConfigParams{
			EntityKind: db.EntityKind(cfg.Kind),
			Version:    cfg.Version,
			Config:     raw,
		})
		if err != nil {
			return fmt.Errorf("SaveWeightConfig: upsert: %w", err)
		}
		saved = row

		if !activate {
			return nil
		}
		if err := q.DeactivateWeightConfigs(ctx, row.EntityKind); err != nil {
			return fmt.Errorf("SaveWeightConfig: deactivate previous: %w", err)
		}
		active, err := q.ActivateWeightConfig(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("SaveWeightConfig: activate: %w", err)
		}
		saved = active
		return nil
	})
	if err != nil {
		return db.WeightConfig{}, err
	}
	return saved, nil
}
