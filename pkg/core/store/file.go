package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

const (
	modelsDir    = "models"
	scenariosDir = "scenarios"
)

// FileStore keeps each model and scenario as an indented JSON file:
//
//	<dir>/models/<id>.json
//	<dir>/scenarios/<id>.json
//
// Writes go to a temp file that is renamed into place.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewFileStore creates the directory layout under dir if needed.
func NewFileStore(ctx context.Context, dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(".cache", "dcf")
	}
	for _, sub := range []string{modelsDir, scenariosDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("file store opened")
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(kind, id string) string {
	return filepath.Join(s.dir, kind, id+".json")
}

func (s *FileStore) SaveModel(ctx context.Context, m *models.Model) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created time.Time
	if m.ID != "" {
		var prev models.Model
		if err := s.read(modelsDir, m.ID, &prev); err == nil {
			created = prev.CreatedAt
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	if err := stampModel(m, created, s.now().UTC()); err != nil {
		return "", err
	}
	if err := s.write(modelsDir, m.ID, m); err != nil {
		return "", err
	}
	return m.ID, nil
}

func (s *FileStore) LoadModel(ctx context.Context, id string) (*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m models.Model
	if err := s.read(modelsDir, id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *FileStore) ListModels(ctx context.Context) ([]*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Model
	err := s.each(modelsDir, func(data []byte) error {
		var m models.Model
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		out = append(out, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *FileStore) DeleteModel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validID(id); err != nil {
		return err
	}
	scenarios, err := s.scenariosOf(id)
	if err != nil {
		return err
	}
	if err := s.remove(modelsDir, id); err != nil {
		return err
	}
	for _, sc := range scenarios {
		if err := s.remove(scenariosDir, sc.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *FileStore) SaveScenario(ctx context.Context, sc *models.Scenario) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var model models.Model
	if err := s.read(modelsDir, sc.ModelID, &model); err != nil {
		return "", fmt.Errorf("model %s: %w", sc.ModelID, err)
	}

	var created time.Time
	isNew := true
	if sc.ID != "" {
		var prev models.Scenario
		if err := s.read(scenariosDir, sc.ID, &prev); err == nil {
			created = prev.CreatedAt
			isNew = false
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	if isNew {
		existing, err := s.scenariosOf(sc.ModelID)
		if err != nil {
			return "", err
		}
		sc.SortOrder = len(existing)
	}
	if err := stampScenario(sc, created, s.now().UTC()); err != nil {
		return "", err
	}
	if err := s.write(scenariosDir, sc.ID, sc); err != nil {
		return "", err
	}
	return sc.ID, nil
}

func (s *FileStore) LoadScenario(ctx context.Context, id string) (*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sc models.Scenario
	if err := s.read(scenariosDir, id, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *FileStore) ListScenarios(ctx context.Context, modelID string) ([]*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenariosOf(modelID)
}

func (s *FileStore) DeleteScenario(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(scenariosDir, id)
}

func (s *FileStore) ReorderScenarios(ctx context.Context, modelID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.scenariosOf(modelID)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Scenario, len(scenarios))
	existing := make(map[string]bool, len(scenarios))
	for _, sc := range scenarios {
		byID[sc.ID] = sc
		existing[sc.ID] = true
	}
	if err := checkOrder(existing, ids); err != nil {
		return err
	}
	for i, id := range ids {
		sc := byID[id]
		if sc.SortOrder == i {
			continue
		}
		sc.SortOrder = i
		if err := s.write(scenariosDir, id, sc); err != nil {
			return err
		}
	}
	return nil
}

// scenariosOf must be called with the lock held.
func (s *FileStore) scenariosOf(modelID string) ([]*models.Scenario, error) {
	var out []*models.Scenario
	err := s.each(scenariosDir, func(data []byte) error {
		var sc models.Scenario
		if err := json.Unmarshal(data, &sc); err != nil {
			return err
		}
		if sc.ModelID == modelID {
			out = append(out, &sc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) read(kind, id string, v interface{}) error {
	if err := validID(id); err != nil {
		return err
	}
	data, err := os.ReadFile(s.path(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) write(kind, id string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	dir := filepath.Join(s.dir, kind)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(kind, id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) remove(kind, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, ErrNotFound)
	}
	return err
}

func (s *FileStore) each(kind string, fn func([]byte) error) error {
	dir := filepath.Join(s.dir, kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", kind, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}
	return nil
}
