package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/models"
)

// integration tests skip themselves when no test database is reachable,
// see database.SetupTestDB

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil, nil)
	require.Error(t, err)
}

func TestBarRepositoryRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Time: start, Open: 100, High: 110, Low: 95, Close: 105, Volume: 1000},
		{Time: start.Add(time.Hour), Open: 105, High: 115, Low: 100, Close: 110, Volume: 1200},
	}

	symbol := "TEST_" + uuid.NewString()[:8]
	written, err := repos.Bars.InsertBatch(ctx, symbol, "1h", bars)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	got, err := repos.Bars.GetRange(ctx, symbol, "1h", start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bars[0].Close, got[0].Close)

	latest, err := repos.Bars.GetLatestTime(ctx, symbol, "1h")
	require.NoError(t, err)
	assert.True(t, latest.Equal(start.Add(time.Hour)))

	count, err := repos.Bars.Count(ctx, symbol, "1h")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	deleted, err := repos.Bars.DeleteRange(ctx, symbol, "1h", start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repos.Bars.GetLatestTime(ctx, symbol, "1h")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDocumentRepositoryCRUD(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := &models.StrategyDocument{
		ID:      uuid.New(),
		Name:    "breakout-" + uuid.NewString()[:8],
		Version: 1,
		Body:    json.RawMessage(`{"version":1,"nodes":[],"edges":[]}`),
	}
	require.NoError(t, repos.Documents.Create(ctx, doc))
	defer repos.Documents.Delete(ctx, doc.ID)

	got, err := repos.Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)

	byName, err := repos.Documents.GetByName(ctx, doc.Name)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byName.ID)

	doc.Version = 2
	require.NoError(t, repos.Documents.Update(ctx, doc))

	updated, err := repos.Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	require.NoError(t, repos.Documents.Delete(ctx, doc.ID))
	_, err = repos.Documents.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRunRepositoryLifecycle(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := &models.StrategyDocument{
		ID:      uuid.New(),
		Name:    "run-lifecycle-" + uuid.NewString()[:8],
		Version: 1,
		Body:    json.RawMessage(`{"version":1,"nodes":[],"edges":[]}`),
	}
	require.NoError(t, repos.Documents.Create(ctx, doc))
	defer repos.Documents.Delete(ctx, doc.ID)

	run := &models.BacktestRun{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		Symbol:     "EURUSD",
		Timeframe:  "1h",
		State:      models.RunStateQueued,
		Config:     json.RawMessage(`{"initial_balance":10000}`),
	}
	require.NoError(t, repos.Runs.Create(ctx, run))

	require.NoError(t, repos.Runs.UpdateState(ctx, run.ID, models.RunStateRunning, nil))

	run.Statistics = json.RawMessage(`{"net_profit":120.5}`)
	run.FinalBalance = 10120.5
	run.TotalTrades = 7
	require.NoError(t, repos.Runs.SaveResult(ctx, run))

	got, err := repos.Runs.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateCompleted, got.State)
	assert.InDelta(t, 10120.5, got.FinalBalance, 1e-9)
	assert.Equal(t, 7, got.TotalTrades)
	assert.NotNil(t, got.CompletedAt)

	byDoc, err := repos.Runs.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, byDoc, 1)

	latest, err := repos.Runs.GetLatest(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, latest)
}

func TestRunStateUpdateMissingRow(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = repos.Runs.UpdateState(ctx, uuid.New(), models.RunStateFailed, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
