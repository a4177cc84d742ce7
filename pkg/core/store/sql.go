package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLStore keeps models and scenarios as JSON payloads next to the columns
// needed for lookup and ordering.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore wraps an open database. The schema must already be migrated;
// see Migrate.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect.gooseDialect(), db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("applied", len(results)).Str("dialect", string(dialect)).Msg("store migrated")
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

func (s *SQLStore) SaveModel(ctx context.Context, m *models.Model) (string, error) {
	var created time.Time
	if m.ID != "" {
		prev, err := s.LoadModel(ctx, m.ID)
		switch {
		case err == nil:
			created = prev.CreatedAt
		case !errors.Is(err, ErrNotFound):
			return "", err
		}
	}
	if err := stampModel(m, created, s.now().UTC()); err != nil {
		return "", err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal model: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO models (id, model_name, company_name, created_unix, updated_unix, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			model_name = excluded.model_name,
			company_name = excluded.company_name,
			updated_unix = excluded.updated_unix,
			payload = excluded.payload`),
		m.ID, m.ModelName, m.CompanyName, m.CreatedAt.UnixNano(), m.UpdatedAt.UnixNano(), string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to save model: %w", err)
	}
	return m.ID, nil
}

func (s *SQLStore) LoadModel(ctx context.Context, id string) (*models.Model, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var payload string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT payload FROM models WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	var m models.Model
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", id, err)
	}
	return &m, nil
}

func (s *SQLStore) ListModels(ctx context.Context) ([]*models.Model, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM models ORDER BY updated_unix DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var out []*models.Model
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		var m models.Model
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("failed to decode model: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteModel(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM scenarios WHERE model_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete scenarios: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM models WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

func (s *SQLStore) SaveScenario(ctx context.Context, sc *models.Scenario) (string, error) {
	if err := validID(sc.ModelID); err != nil {
		return "", err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM models WHERE id = ?`), sc.ModelID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("model %s: %w", sc.ModelID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to check model: %w", err)
	}

	var created time.Time
	isNew := true
	if sc.ID != "" {
		prev, err := s.LoadScenario(ctx, sc.ID)
		switch {
		case err == nil:
			created = prev.CreatedAt
			isNew = false
		case !errors.Is(err, ErrNotFound):
			return "", err
		}
	}
	if isNew {
		var count int
		if err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM scenarios WHERE model_id = ?`), sc.ModelID).Scan(&count); err != nil {
			return "", fmt.Errorf("failed to count scenarios: %w", err)
		}
		sc.SortOrder = count
	}
	if err := stampScenario(sc, created, s.now().UTC()); err != nil {
		return "", err
	}
	payload, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal scenario: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO scenarios (id, model_id, scenario_name, sort_order, created_unix, updated_unix, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			model_id = excluded.model_id,
			scenario_name = excluded.scenario_name,
			sort_order = excluded.sort_order,
			updated_unix = excluded.updated_unix,
			payload = excluded.payload`),
		sc.ID, sc.ModelID, sc.ScenarioName, sc.SortOrder, sc.CreatedAt.UnixNano(), sc.UpdatedAt.UnixNano(), string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to save scenario: %w", err)
	}
	return sc.ID, nil
}

func (s *SQLStore) LoadScenario(ctx context.Context, id string) (*models.Scenario, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var (
		order   int
		payload string
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT sort_order, payload FROM scenarios WHERE id = ?`), id).Scan(&order, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	return decodeScenario(order, payload)
}

func (s *SQLStore) ListScenarios(ctx context.Context, modelID string) ([]*models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT sort_order, payload FROM scenarios
		WHERE model_id = ?
		ORDER BY sort_order ASC, created_unix ASC`), modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var out []*models.Scenario
	for rows.Next() {
		var (
			order   int
			payload string
		)
		if err := rows.Scan(&order, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		sc, err := decodeScenario(order, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteScenario(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM scenarios WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) ReorderScenarios(ctx context.Context, modelID string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.q(`SELECT id FROM scenarios WHERE model_id = ?`), modelID)
	if err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan scenario id: %w", err)
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}
	if err := checkOrder(existing, ids); err != nil {
		return err
	}

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE scenarios SET sort_order = ? WHERE id = ?`), i, id); err != nil {
			return fmt.Errorf("failed to reorder scenario %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// The sort_order column is authoritative; reorders do not rewrite payloads.
func decodeScenario(order int, payload string) (*models.Scenario, error) {
	var sc models.Scenario
	if err := json.Unmarshal([]byte(payload), &sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	sc.SortOrder = order
	return &sc, nil
}
