package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure SessionRepository implements the interface
var _ repositories.SessionRepository = (*SessionRepository)(nil)

// SessionRepository stores lottery sessions in the "lotteries" collection
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection("lotteries"),
	}
}

// EnsureIndexes creates the admin listing index
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "adminId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.LotterySession) error {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	session.Normalize()
	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("insert lottery session: %w", err)
	}
	return nil
}

// FindByID finds a session by ID
func (r *SessionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LotterySession, error) {
	var session models.LotterySession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lottery session: %w", err)
	}
	session.Normalize()
	return &session, nil
}

// FindByAdmin lists the sessions an admin created, newest first
func (r *SessionRepository) FindByAdmin(ctx context.Context, adminID string) ([]*models.LotterySession, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"combinations": 0, "drawLog": 0})
	cursor, err := r.collection.Find(ctx, bson.M{"adminId": adminID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find admin sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*models.LotterySession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode admin sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*models.LotterySession{}
	}
	for _, s := range sessions {
		s.Normalize()
	}
	return sessions, nil
}

// Update replaces the stored session
func (r *SessionRepository) Update(ctx context.Context, session *models.LotterySession) error {
	session.UpdatedAt = time.Now().UTC()
	session.Normalize()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("replace lottery session: %w", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrSessionNotFound
	}
	return nil
}

// TransitionStatus moves from -> to only if the stored status is still from
func (r *SessionRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.SessionStatus) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	return r.conditionalUpdate(ctx, id, filter, update)
}

// SaveAllocation stores combinations and ownership unless an allocation already exists
func (r *SessionRepository) SaveAllocation(ctx context.Context, id primitive.ObjectID, combos []models.Combination, teams []models.Team) error {
	filter := bson.M{
		"_id":            id,
		"combinations.0": bson.M{"$exists": false},
		"status":         bson.M{"$in": bson.A{models.StatusVerification, models.StatusDrawing}},
	}
	update := bson.M{"$set": bson.M{
		"combinations": combos,
		"teams":        teams,
		"updatedAt":    time.Now().UTC(),
	}}
	return r.conditionalUpdate(ctx, id, filter, update)
}

// AddVerifier pushes a verifier while the session is in verification, the user is new and
// fewer than limit verifiers are stored
func (r *SessionRepository) AddVerifier(ctx context.Context, id primitive.ObjectID, verifier models.Verifier, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	filter := bson.M{
		"_id":                                id,
		"status":                             models.StatusVerification,
		"verifiers.userId":                   bson.M{"$ne": verifier.UserID},
		fmt.Sprintf("verifiers.%d", limit-1): bson.M{"$exists": false},
	}
	update := bson.M{
		"$push": bson.M{"verifiers": verifier},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("add verifier: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := r.exists(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// AppendDrawnPick pushes pick N while exactly N-1 picks are stored and the team has none
func (r *SessionRepository) AppendDrawnPick(ctx context.Context, id primitive.ObjectID, pick models.DrawnPick) error {
	if pick.Pick < 1 {
		return fmt.Errorf("append drawn pick: invalid pick number %d", pick.Pick)
	}
	filter := bson.M{
		"_id":               id,
		"status":            models.StatusDrawing,
		"drawnPicks.teamId": bson.M{"$ne": pick.TeamID},
		fmt.Sprintf("drawnPicks.%d", pick.Pick-1): bson.M{"$exists": false},
	}
	if pick.Pick > 1 {
		filter[fmt.Sprintf("drawnPicks.%d", pick.Pick-2)] = bson.M{"$exists": true}
	}
	update := bson.M{
		"$push": bson.M{"drawnPicks": pick},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.conditionalUpdate(ctx, id, filter, update)
}

// SetDrawingState updates the polled drawing fields
func (r *SessionRepository) SetDrawingState(ctx context.Context, id primitive.ObjectID, state models.DrawingState, logEntry string) error {
	if state.CurrentDrawingBalls == nil {
		state.CurrentDrawingBalls = []int{}
	}
	update := bson.M{"$set": bson.M{
		"isDrawing":            state.IsDrawing,
		"drawingStatusMessage": state.DrawingStatusMessage,
		"currentDrawingBalls":  state.CurrentDrawingBalls,
		"updatedAt":            time.Now().UTC(),
	}}
	if logEntry != "" {
		update["$push"] = bson.M{"drawLog": logEntry}
	}
	return r.conditionalUpdate(ctx, id, bson.M{"_id": id}, update)
}

// SaveDraftOrder stores the order and flips drawing -> reveal in the same update
func (r *SessionRepository) SaveDraftOrder(ctx context.Context, id primitive.ObjectID, order []models.DraftPick) error {
	filter := bson.M{"_id": id, "status": models.StatusDrawing}
	update := bson.M{"$set": bson.M{
		"draftOrder":           order,
		"status":               models.StatusReveal,
		"isDrawing":            false,
		"drawingStatusMessage": "",
		"currentDrawingBalls":  []int{},
		"updatedAt":            time.Now().UTC(),
	}}
	return r.conditionalUpdate(ctx, id, filter, update)
}

// Complete flips reveal -> complete
func (r *SessionRepository) Complete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "status": models.StatusReveal}
	update := bson.M{"$set": bson.M{"status": models.StatusComplete, "completedAt": now, "updatedAt": now}}
	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *SessionRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update lottery session: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := r.exists(ctx, id); err != nil {
			return err
		}
		return repositories.ErrStaleSession
	}
	return nil
}

func (r *SessionRepository) exists(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count lottery session: %w", err)
	}
	if n == 0 {
		return repositories.ErrSessionNotFound
	}
	return nil
}
