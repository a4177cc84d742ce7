// Package store persists named valuation models and their scenarios.
//
// Two backends are provided: FileStore keeps one JSON document per record on
// disk, SQLStore keeps the same documents in PostgreSQL or SQLite. Callers
// depend on the Store interface only.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

var (
	// ErrNotFound is returned when a model or scenario does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned for ids that are empty or contain characters
	// other than letters, digits, '-' and '_'.
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidOrder is returned when a reorder request does not list every
	// scenario of the model exactly once.
	ErrInvalidOrder = errors.New("scenario order must list every scenario of the model exactly once")
)

// ModelStore persists models.
type ModelStore interface {
	// SaveModel inserts or replaces a model and returns its id. An empty id
	// is assigned; CreatedAt is preserved across updates and UpdatedAt is
	// stamped on every save.
	SaveModel(ctx context.Context, m *models.Model) (string, error)
	LoadModel(ctx context.Context, id string) (*models.Model, error)
	// ListModels returns every model, most recently updated first.
	ListModels(ctx context.Context) ([]*models.Model, error)
	// DeleteModel removes a model and all of its scenarios.
	DeleteModel(ctx context.Context, id string) error
}

// ScenarioStore persists scenarios belonging to a model.
type ScenarioStore interface {
	// SaveScenario inserts or replaces a scenario. New scenarios are placed
	// after the model's existing ones.
	SaveScenario(ctx context.Context, s *models.Scenario) (string, error)
	LoadScenario(ctx context.Context, id string) (*models.Scenario, error)
	// ListScenarios returns a model's scenarios by ascending SortOrder.
	ListScenarios(ctx context.Context, modelID string) ([]*models.Scenario, error)
	DeleteScenario(ctx context.Context, id string) error
	// ReorderScenarios assigns SortOrder 0..n-1 following ids.
	ReorderScenarios(ctx context.Context, modelID string, ids []string) error
}

// Store is the full persistence port.
type Store interface {
	ModelStore
	ScenarioStore
	Close() error
}

func validID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// stampModel assigns an id and timestamps. created is the CreatedAt of the
// stored version, if any, and always wins over the incoming value.
func stampModel(m *models.Model, created time.Time, now time.Time) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := validID(m.ID); err != nil {
		return err
	}
	switch {
	case !created.IsZero():
		m.CreatedAt = created
	case m.CreatedAt.IsZero():
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}

func stampScenario(s *models.Scenario, created time.Time, now time.Time) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := validID(s.ID); err != nil {
		return err
	}
	switch {
	case !created.IsZero():
		s.CreatedAt = created
	case s.CreatedAt.IsZero():
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return nil
}

// checkOrder verifies that ids is a permutation of existing.
func checkOrder(existing map[string]bool, ids []string) error {
	if len(ids) != len(existing) {
		return fmt.Errorf("%w: got %d ids for %d scenarios", ErrInvalidOrder, len(ids), len(existing))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !existing[id] || seen[id] {
			return fmt.Errorf("%w: unexpected id %q", ErrInvalidOrder, id)
		}
		seen[id] = true
	}
	return nil
}
