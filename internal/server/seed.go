package server

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/publishing"
	"github.com/playperu/hunts/internal/storage"
)

//go:embed demo.yaml
var demoFixture []byte

type demoData struct {
	Creator struct {
		Email        string `yaml:"email"`
		Name         string `yaml:"name"`
		PasswordHash string `yaml:"passwordHash"`
	} `yaml:"creator"`
	Hunt struct {
		Name          string          `yaml:"name"`
		Description   string          `yaml:"description"`
		AccessMode    hunt.AccessMode `yaml:"accessMode"`
		StartLocation *hunt.Location  `yaml:"startLocation"`
		Steps         []struct {
			Challenge        hunt.Challenge `yaml:"challenge"`
			Hint             string         `yaml:"hint"`
			RequiredLocation *hunt.Location `yaml:"requiredLocation"`
			TimeLimitSeconds int            `yaml:"timeLimitSeconds"`
			MaxAttempts      int            `yaml:"maxAttempts"`
		} `yaml:"steps"`
	} `yaml:"hunt"`
}

// SeedDemo creates the demo creator and a live demo hunt.
// Idempotent: does nothing if the demo creator already owns a hunt.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *storage.Store, pub *publishing.Service) error {
	var demo demoData
	if err := yaml.Unmarshal(demoFixture, &demo); err != nil {
		return fmt.Errorf("parsing demo fixture: %w", err)
	}

	creatorID, err := store.Queries().UpsertCreator(ctx, storage.Creator{
		ID:           uuid.NewString(),
		Email:        demo.Creator.Email,
		Name:         demo.Creator.Name,
		PasswordHash: demo.Creator.PasswordHash,
	}, time.Now())
	if err != nil {
		return fmt.Errorf("creating demo creator: %w", err)
	}

	existing, err := pub.Hunts(ctx, creatorID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	h, err := pub.CreateHunt(ctx, creatorID, publishing.CreateInput{
		Name:          demo.Hunt.Name,
		Description:   demo.Hunt.Description,
		StartLocation: demo.Hunt.StartLocation,
		AccessMode:    demo.Hunt.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("creating demo hunt: %w", err)
	}
	for i, s := range demo.Hunt.Steps {
		_, err := pub.AddStep(ctx, h.ID, creatorID, publishing.StepInput{
			Challenge:        s.Challenge,
			Hint:             s.Hint,
			RequiredLocation: s.RequiredLocation,
			TimeLimitSeconds: s.TimeLimitSeconds,
			MaxAttempts:      s.MaxAttempts,
		})
		if err != nil {
			return fmt.Errorf("adding demo step %d: %w", i+1, err)
		}
	}

	if _, err := pub.Publish(ctx, h.ID, creatorID); err != nil {
		return fmt.Errorf("publishing demo hunt: %w", err)
	}
	if _, err := pub.Release(ctx, h.ID, creatorID, nil, nil); err != nil {
		return fmt.Errorf("releasing demo hunt: %w", err)
	}

	logger.Info("demo hunt seeded", "hunt_id", h.ID, "slug", h.PlaySlug)
	return nil
}
