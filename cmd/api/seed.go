package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
)

func newSeedWeightsCmd() *cobra.Command {
	var (
		files      []string
		activate   bool
		noDefaults bool
	)

	cmd := &cobra.Command{
		Use:   "seed-weights",
		Short: "Store weight configs, from YAML files or the built-in defaults",
		Long: `Validates and upserts weight configs by (kind, version). Without --file the
built-in priority and risk defaults are stored. Documents without a version
are stored under their content hash.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs, err := loadWeightConfigs(files, noDefaults)
			if err != nil {
				return err
			}

			appCfg, logger, err := setup()
			if err != nil {
				return err
			}
			pool, err := openDB(cmd.Context(), appCfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()

			st := store.New(pool, db.New(pool))
			for _, wc := range cfgs {
				row, err := st.SaveWeightConfig(cmd.Context(), wc, activate)
				if err != nil {
					return fmt.Errorf("seed %s: %w", wc.Kind, err)
				}
				logger.Info("weight config stored",
					"kind", row.EntityKind,
					"version", row.Version,
					"active", row.IsActive,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "YAML weight config to store (repeatable)")
	cmd.Flags().BoolVar(&activate, "activate", true, "Make each stored config the active one for its kind")
	cmd.Flags().BoolVar(&noDefaults, "no-defaults", false, "Fail instead of falling back to the built-in defaults")
	return cmd
}

// loadWeightConfigs parses the named YAML documents, or returns the built-in
// defaults when none are named.
func loadWeightConfigs(files []string, noDefaults bool) ([]scoring.WeightConfig, error) {
	if len(files) == 0 {
		if noDefaults {
			return nil, fmt.Errorf("seed-weights: no --file given and defaults disabled")
		}
		return []scoring.WeightConfig{
			scoring.DefaultTrainingNeedConfig(),
			scoring.DefaultScholarConfig(),
		}, nil
	}

	out := make([]scoring.WeightConfig, 0, len(files))
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("seed-weights: %w", err)
		}
		wc, err := scoring.ParseWeightConfigYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("seed-weights: %s: %w", path, err)
		}
		out = append(out, wc)
	}
	return out, nil
}
