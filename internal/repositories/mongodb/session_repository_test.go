package mongodb

import (
	"context"
	"testing"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const lotteriesNS = "lottery.lotteries"

func updateResponse(matched int) bson.D {
	return bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: matched}, {Key: "nModified", Value: matched}}
}

func TestSessionRepositoryFindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, lotteriesNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Dynasty League"},
			{Key: "adminId", Value: "admin-1"},
			{Key: "teamCount", Value: 4},
			{Key: "status", Value: "setup"},
		}))

		session, err := repo.FindByID(context.Background(), id)
		require.NoError(mt, err)
		assert.Equal(mt, id, session.ID)
		assert.Equal(mt, "Dynasty League", session.Name)
		assert.Equal(mt, models.StatusSetup, session.Status)
		assert.NotNil(mt, session.DrawnPicks)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, lotteriesNS, mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, repositories.ErrSessionNotFound)
	})
}

func TestSessionRepositoryConditionalWrites(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("transition applied", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		mt.AddMockResponses(updateResponse(1))

		err := repo.TransitionStatus(context.Background(), primitive.NewObjectID(), models.StatusSetup, models.StatusVerification)
		assert.NoError(mt, err)
	})

	mt.Run("stale append", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		mt.AddMockResponses(
			updateResponse(0),
			mtest.CreateCursorResponse(1, lotteriesNS, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		err := repo.AppendDrawnPick(context.Background(), primitive.NewObjectID(), models.DrawnPick{Pick: 2, TeamID: "team-3"})
		assert.ErrorIs(mt, err, repositories.ErrStaleSession)
	})

	mt.Run("missing session", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		mt.AddMockResponses(
			updateResponse(0),
			mtest.CreateCursorResponse(0, lotteriesNS, mtest.FirstBatch),
		)

		err := repo.Complete(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, repositories.ErrSessionNotFound)
	})

	mt.Run("verifier already at limit", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		mt.AddMockResponses(
			updateResponse(0),
			mtest.CreateCursorResponse(1, lotteriesNS, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		added, err := repo.AddVerifier(context.Background(), primitive.NewObjectID(), models.Verifier{UserID: "u1"}, 2)
		require.NoError(mt, err)
		assert.False(mt, added)
	})

	mt.Run("invalid pick number", func(mt *mtest.T) {
		repo := NewSessionRepository(mt.DB)
		err := repo.AppendDrawnPick(context.Background(), primitive.NewObjectID(), models.DrawnPick{Pick: 0})
		assert.Error(mt, err)
	})
}
