//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"github.com/ArowuTest/draft-lottery-backend/pkg/mongodb"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startMongo(t *testing.T) *mongodb.Client {
	t.Helper()
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	pool.MaxWait = 60 * time.Second

	resource, err := pool.Run("mongo", "6.0", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))
	var client *mongodb.Client
	require.NoError(t, pool.Retry(func() error {
		var err error
		client, err = mongodb.NewClient(context.Background(), uri, 5*time.Second)
		return err
	}))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func TestSessionRepositoryAgainstMongo(t *testing.T) {
	client := startMongo(t)
	repo := NewSessionRepository(client.Database("lottery_it"))
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	session := &models.LotterySession{
		Name:      "Integration",
		AdminID:   "admin-1",
		TeamCount: 2,
		Status:    models.StatusDrawing,
		Teams: []models.Team{
			{ID: "team-1", Name: "Team 1", Rank: 1},
			{ID: "team-2", Name: "Team 2", Rank: 2},
		},
	}
	require.NoError(t, repo.Create(ctx, session))

	combos := []models.Combination{{ID: 1, Balls: []int{1, 2, 3, 4}, TeamID: "team-1"}}
	require.NoError(t, repo.SaveAllocation(ctx, session.ID, combos, session.Teams))
	assert.ErrorIs(t, repo.SaveAllocation(ctx, session.ID, combos, session.Teams), repositories.ErrStaleSession)

	pick := models.DrawnPick{Pick: 1, TeamID: "team-1", Combination: combos[0], DrawnAt: time.Now().UTC()}
	require.NoError(t, repo.AppendDrawnPick(ctx, session.ID, pick))
	assert.ErrorIs(t, repo.AppendDrawnPick(ctx, session.ID, pick), repositories.ErrStaleSession)

	second := models.DrawnPick{Pick: 2, TeamID: "team-1", Combination: combos[0]}
	assert.ErrorIs(t, repo.AppendDrawnPick(ctx, session.ID, second), repositories.ErrStaleSession)

	second.TeamID = "team-2"
	require.NoError(t, repo.AppendDrawnPick(ctx, session.ID, second))

	stored, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.DrawnPicks, 2)
	assert.Len(t, stored.Combinations, 1)

	listed, err := repo.FindByAdmin(ctx, "admin-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Combinations)
}
