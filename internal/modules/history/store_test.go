package history

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	store := NewStore(openDB(t, "history").Conn())
	ctx := context.Background()

	// Intraday timestamps collapse onto the calendar day
	obs := []domain.PriceObservation{
		{Date: day(0).Add(15 * time.Hour), Value: 1.5},
		{Date: day(1), Value: math.NaN()},
		{Date: day(2), Value: 2.5},
	}
	require.NoError(t, store.Save(ctx, domain.AssetClassBond, "DGS10", obs))

	got, err := store.Load(ctx, domain.AssetClassBond, "DGS10", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Date.Equal(day(0)))
	assert.Equal(t, 1.5, got[0].Value)
	assert.True(t, math.IsNaN(got[1].Value))
	assert.Equal(t, 2.5, got[2].Value)

	last, err := store.Load(ctx, domain.AssetClassBond, "DGS10", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.True(t, last[0].Date.Equal(day(1)))
}

func TestStore_SaveReplaces(t *testing.T) {
	store := NewStore(openDB(t, "history").Conn())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.AssetClassEquity, "AAPL", []domain.PriceObservation{
		{Date: day(0), Value: 1}, {Date: day(1), Value: 2},
	}))
	require.NoError(t, store.Save(ctx, domain.AssetClassEquity, "AAPL", []domain.PriceObservation{
		{Date: day(5), Value: 9},
	}))

	got, err := store.Load(ctx, domain.AssetClassEquity, "AAPL", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9.0, got[0].Value)
}

func TestStore_LoadUnknown(t *testing.T) {
	store := NewStore(openDB(t, "history").Conn())

	got, err := store.Load(context.Background(), domain.AssetClassEquity, "NOPE", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
