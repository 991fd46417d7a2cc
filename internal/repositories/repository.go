package repositories

import (
	"context"
	"errors"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrSessionNotFound = errors.New("lottery session not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	// ErrStaleSession means the stored session moved on since it was read; re-fetch and retry
	ErrStaleSession = errors.New("lottery session changed since it was read")
)

// SessionRepository persists lottery sessions, one document per session.
// Update replaces the whole document (last write wins). The other mutators are conditional
// writes that return ErrStaleSession when their precondition no longer holds.
type SessionRepository interface {
	Create(ctx context.Context, session *models.LotterySession) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.LotterySession, error)
	FindByAdmin(ctx context.Context, adminID string) ([]*models.LotterySession, error)
	Update(ctx context.Context, session *models.LotterySession) error

	// TransitionStatus moves the session from one status to another
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.SessionStatus) error
	// SaveAllocation stores the combination set and team ownership if none is stored yet
	SaveAllocation(ctx context.Context, id primitive.ObjectID, combos []models.Combination, teams []models.Team) error
	// AddVerifier appends a verifier unless already present or the limit is reached.
	// It reports whether the verifier was added.
	AddVerifier(ctx context.Context, id primitive.ObjectID, verifier models.Verifier, limit int) (bool, error)
	// AppendDrawnPick stores pick N only while exactly N-1 picks are stored
	AppendDrawnPick(ctx context.Context, id primitive.ObjectID, pick models.DrawnPick) error
	// SetDrawingState updates the fields observers poll and appends an audit line
	SetDrawingState(ctx context.Context, id primitive.ObjectID, state models.DrawingState, logEntry string) error
	// SaveDraftOrder stores the draft order and moves drawing -> reveal in one write
	SaveDraftOrder(ctx context.Context, id primitive.ObjectID, order []models.DraftPick) error
	// Complete moves reveal -> complete and stamps the completion time
	Complete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository persists accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}
