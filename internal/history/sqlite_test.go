package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDecision(id, pipeline string, action models.Action, at time.Time) models.Decision {
	verdict := models.VerdictBlocked
	if action.AllowsChain() {
		verdict = models.VerdictAllowed
	}
	descriptor, _ := action.Describe()
	return models.Decision{
		ID:         id,
		TenantID:   "tenant",
		PipelineID: pipeline,
		PolicyName: "default",
		Signals:    models.Signals{AllClear: verdict == models.VerdictAllowed},
		Action:     action,
		Descriptor: descriptor,
		Chain: models.ChainResult{
			Overall: verdict,
			Units:   []models.UnitDecision{{Name: "arima", Allowed: verdict == models.VerdictAllowed}},
		},
		CreatedAt: at.UTC(),
	}
}

func TestSQLiteStoreRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	decision := sampleDecision("d1", "forecast", models.ActionAutoDeploy, now)
	require.NoError(t, store.Record(ctx, decision))

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, decision, got)

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrDecisionNotFound))

	// Duplicate IDs are rejected.
	assert.Error(t, store.Record(ctx, decision))
}

func TestSQLiteStoreLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Latest(ctx, "tenant", "forecast")
	require.ErrorIs(t, err, models.ErrDecisionNotFound)

	require.NoError(t, store.Record(ctx, sampleDecision("d1", "forecast", models.ActionAutoDeploy, base)))
	require.NoError(t, store.Record(ctx, sampleDecision("d2", "forecast", models.ActionQuarantine, base.Add(time.Minute))))
	require.NoError(t, store.Record(ctx, sampleDecision("d3", "anomaly", models.ActionReview, base.Add(2*time.Minute))))

	latest, err := store.Latest(ctx, "tenant", "forecast")
	require.NoError(t, err)
	assert.Equal(t, "d2", latest.ID)
	assert.Equal(t, models.VerdictBlocked, latest.Chain.Overall)
}

func TestSQLiteStoreListFiltersAndPaginates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		action := models.ActionAutoDeploy
		if i%2 == 1 {
			action = models.ActionQuarantine
		}
		require.NoError(t, store.Record(ctx, sampleDecision(fmt.Sprintf("d%d", i), "forecast", action, base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, store.Record(ctx, sampleDecision("other", "anomaly", models.ActionAutoDeploy, base)))

	page, err := store.List(ctx, models.ListDecisionsRequest{TenantID: "tenant", PipelineID: "forecast", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Decisions, 2)
	assert.Equal(t, "d4", page.Decisions[0].ID)
	assert.Equal(t, "d3", page.Decisions[1].ID)
	require.NotEmpty(t, page.NextPageToken)

	page2, err := store.List(ctx, models.ListDecisionsRequest{TenantID: "tenant", PipelineID: "forecast", PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page2.Decisions, 2)
	assert.Equal(t, "d2", page2.Decisions[0].ID)

	page3, err := store.List(ctx, models.ListDecisionsRequest{TenantID: "tenant", PipelineID: "forecast", PageSize: 2, PageToken: page2.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page3.Decisions, 1)
	assert.Equal(t, "d0", page3.Decisions[0].ID)
	assert.Empty(t, page3.NextPageToken)

	quarantined, err := store.List(ctx, models.ListDecisionsRequest{Action: models.ActionQuarantine})
	require.NoError(t, err)
	assert.Len(t, quarantined.Decisions, 2)

	windowed, err := store.List(ctx, models.ListDecisionsRequest{
		PipelineID: "forecast",
		Start:      base.Add(time.Hour),
		End:        base.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, windowed.Decisions, 3)
}

func TestSQLiteStoreListRejectsBadToken(t *testing.T) {
	store := newTestStore(t)
	_, err := store.List(context.Background(), models.ListDecisionsRequest{PageToken: "abc"})
	assert.True(t, utils.IsInvalidArgument(err))
}

func TestSQLiteStorePrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, sampleDecision("old", "forecast", models.ActionReview, base)))
	require.NoError(t, store.Record(ctx, sampleDecision("new", "forecast", models.ActionReview, base.Add(48*time.Hour))))

	deleted, err := store.Prune(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, models.ErrDecisionNotFound)
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("", nil)
	assert.Error(t, err)
}
