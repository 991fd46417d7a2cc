package services

import (
	"context"
	"errors"
	"io"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrForbidden          = errors.New("only the lottery admin may do this")
	ErrTeamNotFound       = errors.New("team not found")
	ErrWrongStatus        = errors.New("operation not allowed in the current lottery status")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// LotteryService runs lottery sessions from setup to completion
type LotteryService interface {
	CreateSession(ctx context.Context, actor models.Actor, input CreateSessionInput) (*models.LotterySession, error)
	GetSession(ctx context.Context, id primitive.ObjectID) (*models.LotterySession, error)
	ListAdminSessions(ctx context.Context, adminID string) ([]*models.LotterySession, error)
	UpdateTeam(ctx context.Context, actor models.Actor, id primitive.ObjectID, teamID string, update TeamUpdate) (*models.LotterySession, error)

	OpenVerification(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error)
	AddVerifier(ctx context.Context, actor models.Actor, id primitive.ObjectID) (bool, error)
	Allocate(ctx context.Context, actor models.Actor, id primitive.ObjectID) ([]models.Combination, error)
	StartDrawing(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error)

	DrawNextPick(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*DrawResult, error)
	DrawRemaining(ctx context.Context, actor models.Actor, id primitive.ObjectID) ([]models.DrawnPick, error)
	ComposeDraftOrder(ctx context.Context, actor models.Actor, id primitive.ObjectID) ([]models.DraftPick, error)
	MarkComplete(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error)

	ExportCombinations(ctx context.Context, id primitive.ObjectID, w io.Writer) error
	ExportDraftOrder(ctx context.Context, id primitive.ObjectID, w io.Writer) error
	RevealSequence(ctx context.Context, id primitive.ObjectID) ([]models.DraftPick, error)
}

// AuthService registers accounts and issues access tokens
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
}

// CreateSessionInput describes a new lottery. TeamNames is optional; missing names
// default to "Team N".
type CreateSessionInput struct {
	Name                  string
	TeamCount             int
	RequiredVerifierCount int
	TeamNames             []string
}

// TeamUpdate changes a team's details. Nil fields are left untouched.
type TeamUpdate struct {
	Name   *string
	Emails []string
}

// DrawResult is the outcome of one ball draw
type DrawResult struct {
	Outcome  string            `json:"outcome"`
	Balls    []int             `json:"balls"`
	Message  string            `json:"message"`
	Pick     *models.DrawnPick `json:"pick,omitempty"`
	Retry    bool              `json:"retry"`
	Complete bool              `json:"complete"`
}
