package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func sampleModel(name string) *models.Model {
	return &models.Model{
		ModelName:   name,
		CompanyName: "Acme",
		DataSet: models.DataSet{
			EBITDAData: models.EBITDAData{2024: -100, 2025: 250},
			Parameters: models.Parameters{DiscountRate: 30, PerpetuityRate: 4, CorporateTaxRate: 21},
			Historical: map[int]bool{2024: true},
		},
		Tags: []string{"demo"},
	}
}

// runStoreSuite exercises behaviour every backend must share.
func runStoreSuite(t *testing.T, open func(t *testing.T, now func() time.Time) Store) {
	ctx := context.Background()

	t.Run("model lifecycle", func(t *testing.T) {
		c := newClock()
		s := open(t, c.now)

		m := sampleModel("Base case")
		id, err := s.SaveModel(ctx, m)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		assert.Equal(t, id, m.ID)

		got, err := s.LoadModel(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Base case", got.ModelName)
		assert.Equal(t, m.DataSet.EBITDAData, got.DataSet.EBITDAData)
		assert.True(t, got.DataSet.IsHistorical(2024))
		assert.True(t, got.CreatedAt.Equal(c.t))
		assert.True(t, got.UpdatedAt.Equal(c.t))

		created := c.t
		updatedAt := c.advance()
		update := sampleModel("Renamed")
		update.ID = id
		_, err = s.SaveModel(ctx, update)
		require.NoError(t, err)

		got, err = s.LoadModel(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.ModelName)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.True(t, got.UpdatedAt.Equal(updatedAt))

		require.NoError(t, s.DeleteModel(ctx, id))
		_, err = s.LoadModel(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteModel(ctx, id), ErrNotFound)
	})

	t.Run("update keeps stored creation time", func(t *testing.T) {
		c := newClock()
		s := open(t, c.now)
		forged := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

		m := sampleModel("Base case")
		id, err := s.SaveModel(ctx, m)
		require.NoError(t, err)
		created := c.t

		c.advance()
		update := sampleModel("Renamed")
		update.ID = id
		update.CreatedAt = forged
		_, err = s.SaveModel(ctx, update)
		require.NoError(t, err)
		got, err := s.LoadModel(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.CreatedAt.Equal(created), got.CreatedAt.String())

		sc := &models.Scenario{ModelID: id, ScenarioName: "Base", DataSet: m.DataSet}
		scID, err := s.SaveScenario(ctx, sc)
		require.NoError(t, err)
		scCreated := c.t

		c.advance()
		sc.ScenarioName = "Bull"
		sc.CreatedAt = forged
		_, err = s.SaveScenario(ctx, sc)
		require.NoError(t, err)
		gotSc, err := s.LoadScenario(ctx, scID)
		require.NoError(t, err)
		assert.Equal(t, "Bull", gotSc.ScenarioName)
		assert.True(t, gotSc.CreatedAt.Equal(scCreated), gotSc.CreatedAt.String())

		imported := sampleModel("Imported")
		imported.CreatedAt = forged
		importedID, err := s.SaveModel(ctx, imported)
		require.NoError(t, err)
		got, err = s.LoadModel(ctx, importedID)
		require.NoError(t, err)
		assert.True(t, got.CreatedAt.Equal(forged))
	})

	t.Run("list newest first", func(t *testing.T) {
		c := newClock()
		s := open(t, c.now)

		a := sampleModel("A")
		_, err := s.SaveModel(ctx, a)
		require.NoError(t, err)
		c.advance()
		b := sampleModel("B")
		_, err = s.SaveModel(ctx, b)
		require.NoError(t, err)
		c.advance()
		_, err = s.SaveModel(ctx, a)
		require.NoError(t, err)

		list, err := s.ListModels(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "A", list[0].ModelName)
		assert.Equal(t, "B", list[1].ModelName)
	})

	t.Run("invalid ids", func(t *testing.T) {
		s := open(t, newClock().now)

		_, err := s.LoadModel(ctx, "../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidID)

		m := sampleModel("x")
		m.ID = "a/b"
		_, err = s.SaveModel(ctx, m)
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("scenarios", func(t *testing.T) {
		c := newClock()
		s := open(t, c.now)

		modelID, err := s.SaveModel(ctx, sampleModel("Parent"))
		require.NoError(t, err)

		_, err = s.SaveScenario(ctx, &models.Scenario{ModelID: "missing", ScenarioName: "x"})
		assert.ErrorIs(t, err, ErrNotFound)

		var ids []string
		for _, name := range []string{"Conservative", "Base", "Optimistic"} {
			c.advance()
			sc := &models.Scenario{ModelID: modelID, ScenarioName: name, DataSet: sampleModel(name).DataSet}
			id, err := s.SaveScenario(ctx, sc)
			require.NoError(t, err)
			ids = append(ids, id)
		}

		list, err := s.ListScenarios(ctx, modelID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, sc := range list {
			assert.Equal(t, ids[i], sc.ID)
			assert.Equal(t, i, sc.SortOrder)
		}

		require.NoError(t, s.ReorderScenarios(ctx, modelID, []string{ids[2], ids[0], ids[1]}))
		list, err = s.ListScenarios(ctx, modelID)
		require.NoError(t, err)
		assert.Equal(t, ids[2], list[0].ID)
		assert.Equal(t, ids[0], list[1].ID)
		assert.Equal(t, 2, list[2].SortOrder)

		got, err := s.LoadScenario(ctx, ids[2])
		require.NoError(t, err)
		assert.Equal(t, 0, got.SortOrder)
		assert.Equal(t, "Optimistic", got.ScenarioName)

		err = s.ReorderScenarios(ctx, modelID, []string{ids[0], ids[1]})
		assert.ErrorIs(t, err, ErrInvalidOrder)
		err = s.ReorderScenarios(ctx, modelID, []string{ids[0], ids[0], ids[1]})
		assert.ErrorIs(t, err, ErrInvalidOrder)

		// an update keeps its position
		got.ScenarioName = "Bull"
		_, err = s.SaveScenario(ctx, got)
		require.NoError(t, err)
		got, err = s.LoadScenario(ctx, ids[2])
		require.NoError(t, err)
		assert.Equal(t, "Bull", got.ScenarioName)
		assert.Equal(t, 0, got.SortOrder)

		require.NoError(t, s.DeleteScenario(ctx, ids[1]))
		assert.ErrorIs(t, s.DeleteScenario(ctx, ids[1]), ErrNotFound)

		require.NoError(t, s.DeleteModel(ctx, modelID))
		list, err = s.ListScenarios(ctx, modelID)
		require.NoError(t, err)
		assert.Empty(t, list)
		_, err = s.LoadScenario(ctx, ids[0])
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFileStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T, now func() time.Time) Store {
		s, err := NewFileStore(context.Background(), t.TempDir())
		require.NoError(t, err)
		s.now = now
		return s
	})
}

func TestFileStore_DeleteModelKeepsModelWhenScenariosUnreadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(ctx, dir)
	require.NoError(t, err)

	id, err := s.SaveModel(ctx, sampleModel("Parent"))
	require.NoError(t, err)
	scID, err := s.SaveScenario(ctx, &models.Scenario{ModelID: id, ScenarioName: "Base"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, scenariosDir, "broken.json"), []byte("{"), 0o644))

	assert.Error(t, s.DeleteModel(ctx, id))

	_, err = s.LoadModel(ctx, id)
	assert.NoError(t, err)
	_, err = s.LoadScenario(ctx, scID)
	assert.NoError(t, err)
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T, now func() time.Time) Store {
		s, err := Open(context.Background(), Config{Driver: DriverSQLite, Dir: t.TempDir()})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		s.(*SQLStore).now = now
		return s
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Config{Driver: DriverPostgres})
	assert.ErrorContains(t, err, "DSN")
	_, err = Open(ctx, Config{Driver: "PostgreSQL"})
	assert.ErrorContains(t, err, "DSN")

	s, err = Open(ctx, Config{Driver: "sqlite3", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestCheckOrder(t *testing.T) {
	existing := map[string]bool{"a": true, "b": true}
	assert.NoError(t, checkOrder(existing, []string{"b", "a"}))
	assert.ErrorIs(t, checkOrder(existing, []string{"a", "c"}), ErrInvalidOrder)
	assert.ErrorIs(t, checkOrder(existing, []string{"a"}), ErrInvalidOrder)
	assert.NoError(t, checkOrder(map[string]bool{}, nil))
}
