package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/snapfood/internal/models"
)

func seedScan(t *testing.T, st *Storage, userID uuid.UUID, food string, calories int, risk string, at time.Time, n models.Nutrients) {
	t.Helper()
	require.NoError(t, st.SaveScan(context.Background(), &models.Scan{
		ID:         uuid.New(),
		UserID:     userID,
		DishName:   food,
		Nutrients:  n,
		Calories:   calories,
		Confidence: 0.9,
		Advice:     "eat less",
		Substitute: "salad",
		RiskLevel:  risk,
		ScannedAt:  at,
		CreatedAt:  at,
	}))
}

func TestIntegration_SaveScan_And_ScansByUser(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	alice := seedUser(t, st, "alice@example.com")
	bob := seedUser(t, st, "bob@example.com")

	now := time.Now().UTC()
	seedScan(t, st, alice, "pizza", 800, "high", now.Add(-2*time.Hour), models.Nutrients{"calories": 800.0, "protein": 30.0})
	seedScan(t, st, alice, "salad", 150, "", now.Add(-time.Hour), models.Nutrients{})
	seedScan(t, st, bob, "burger", 600, "medium", now, models.Nutrients{})

	got, err := st.ScansByUser(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "salad", got[0].DishName)
	require.Empty(t, got[0].RiskLevel)
	require.Equal(t, "pizza", got[1].DishName)
	require.Equal(t, "high", got[1].RiskLevel)
	v, ok := got[1].Nutrients.Number("protein")
	require.True(t, ok)
	require.InDelta(t, 30.0, v, 1e-9)

	limited, err := st.ScansByUser(ctx, alice, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
