package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "lottery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSession(adminID string, status models.SessionStatus) *models.LotterySession {
	return &models.LotterySession{
		Name:                  "Keeper League",
		AdminID:               adminID,
		TeamCount:             2,
		RequiredVerifierCount: 2,
		Status:                status,
		Teams: []models.Team{
			{ID: "team-1", Name: "Team 1", Rank: 1, OddsPercentage: 14},
			{ID: "team-2", Name: "Team 2", Rank: 2, OddsPercentage: 14},
		},
	}
}

func TestSessionRepositoryCreateAndFind(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()

	s := newSession("admin-1", models.StatusSetup)
	require.NoError(t, repo.Create(ctx, s))
	require.False(t, s.ID.IsZero())

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keeper League", got.Name)
	assert.Equal(t, s.Teams[1].ID, got.Teams[1].ID)
	assert.NotNil(t, got.DrawnPicks)
	assert.NotNil(t, got.Teams[0].Emails)

	_, err = repo.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repositories.ErrSessionNotFound)
}

func TestSessionRepositoryFindByAdminNewestFirst(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()

	first := newSession("admin-1", models.StatusSetup)
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(2 * time.Millisecond)
	second := newSession("admin-1", models.StatusSetup)
	second.Combinations = []models.Combination{{ID: 1, Balls: []int{1, 2, 3, 4}}}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, newSession("admin-2", models.StatusSetup)))

	sessions, err := repo.FindByAdmin(ctx, "admin-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Empty(t, sessions[0].Combinations)

	none, err := repo.FindByAdmin(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessionRepositoryTransitionStatus(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := newSession("admin-1", models.StatusSetup)
	require.NoError(t, repo.Create(ctx, s))

	require.NoError(t, repo.TransitionStatus(ctx, s.ID, models.StatusSetup, models.StatusVerification))
	err := repo.TransitionStatus(ctx, s.ID, models.StatusSetup, models.StatusVerification)
	assert.ErrorIs(t, err, repositories.ErrStaleSession)

	err = repo.TransitionStatus(ctx, primitive.NewObjectID(), models.StatusSetup, models.StatusDrawing)
	assert.ErrorIs(t, err, repositories.ErrSessionNotFound)
}

func TestSessionRepositorySaveAllocationOnce(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := newSession("admin-1", models.StatusSetup)
	require.NoError(t, repo.Create(ctx, s))

	combos := []models.Combination{{ID: 1, Balls: []int{1, 2, 3, 4}, TeamID: "team-1"}}
	assert.ErrorIs(t, repo.SaveAllocation(ctx, s.ID, combos, s.Teams), repositories.ErrStaleSession)

	require.NoError(t, repo.TransitionStatus(ctx, s.ID, models.StatusSetup, models.StatusVerification))
	require.NoError(t, repo.SaveAllocation(ctx, s.ID, combos, s.Teams))
	assert.ErrorIs(t, repo.SaveAllocation(ctx, s.ID, combos, s.Teams), repositories.ErrStaleSession)

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, combos, got.Combinations)
}

func TestSessionRepositoryAddVerifier(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := newSession("admin-1", models.StatusVerification)
	require.NoError(t, repo.Create(ctx, s))

	added, err := repo.AddVerifier(ctx, s.ID, models.Verifier{UserID: "u1"}, 2)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddVerifier(ctx, s.ID, models.Verifier{UserID: "u1"}, 2)
	require.NoError(t, err)
	assert.False(t, added, "duplicate verifier")

	added, err = repo.AddVerifier(ctx, s.ID, models.Verifier{UserID: "u2"}, 2)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddVerifier(ctx, s.ID, models.Verifier{UserID: "u3"}, 2)
	require.NoError(t, err)
	assert.False(t, added, "limit reached")

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Verifiers, 2)
}

func TestSessionRepositoryAppendDrawnPick(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := newSession("admin-1", models.StatusDrawing)
	require.NoError(t, repo.Create(ctx, s))

	assert.ErrorIs(t, repo.AppendDrawnPick(ctx, s.ID, models.DrawnPick{Pick: 2, TeamID: "team-1"}), repositories.ErrStaleSession)
	require.NoError(t, repo.AppendDrawnPick(ctx, s.ID, models.DrawnPick{Pick: 1, TeamID: "team-1"}))
	assert.ErrorIs(t, repo.AppendDrawnPick(ctx, s.ID, models.DrawnPick{Pick: 1, TeamID: "team-2"}), repositories.ErrStaleSession)
	assert.ErrorIs(t, repo.AppendDrawnPick(ctx, s.ID, models.DrawnPick{Pick: 2, TeamID: "team-1"}), repositories.ErrStaleSession)
	require.NoError(t, repo.AppendDrawnPick(ctx, s.ID, models.DrawnPick{Pick: 2, TeamID: "team-2"}))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.DrawnPicks, 2)
	assert.Equal(t, "team-2", got.DrawnPicks[1].TeamID)
}

func TestSessionRepositoryDrawingStateAndDraftOrder(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := newSession("admin-1", models.StatusDrawing)
	require.NoError(t, repo.Create(ctx, s))

	state := models.DrawingState{IsDrawing: true, DrawingStatusMessage: "Drawing pick #1", CurrentDrawingBalls: []int{1, 5, 9, 13}}
	require.NoError(t, repo.SetDrawingState(ctx, s.ID, state, "pick 1: 1-5-9-13 dead"))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDrawing)
	assert.Equal(t, []int{1, 5, 9, 13}, got.CurrentDrawingBalls)
	assert.Equal(t, []string{"pick 1: 1-5-9-13 dead"}, got.DrawLog)

	order := []models.DraftPick{{Pick: 1, TeamID: "team-1", TeamName: "Team 1"}, {Pick: 2, TeamID: "team-2", TeamName: "Team 2"}}
	require.NoError(t, repo.SaveDraftOrder(ctx, s.ID, order))
	assert.ErrorIs(t, repo.SaveDraftOrder(ctx, s.ID, order), repositories.ErrStaleSession)

	got, err = repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReveal, got.Status)
	assert.False(t, got.IsDrawing)
	assert.Len(t, got.DraftOrder, 2)
	assert.Nil(t, got.DraftOrder[0].Combination)

	require.NoError(t, repo.Complete(ctx, s.ID))
	assert.ErrorIs(t, repo.Complete(ctx, s.ID), repositories.ErrStaleSession)
	got, err = repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, got.Status)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestSessionRepositoryUpdate(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := newSession("admin-1", models.StatusSetup)
	require.NoError(t, repo.Create(ctx, s))

	s.Teams[0].Name = "Renamed"
	require.NoError(t, repo.Update(ctx, s))
	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Teams[0].Name)

	ghost := newSession("admin-1", models.StatusSetup)
	ghost.ID = primitive.NewObjectID()
	assert.ErrorIs(t, repo.Update(ctx, ghost), repositories.ErrSessionNotFound)
}
