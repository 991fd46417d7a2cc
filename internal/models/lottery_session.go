package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus is the lifecycle state of a lottery session
type SessionStatus string

const (
	StatusSetup        SessionStatus = "setup"
	StatusVerification SessionStatus = "verification"
	StatusDrawing      SessionStatus = "drawing"
	StatusReveal       SessionStatus = "reveal"
	StatusComplete     SessionStatus = "complete"
)

// Team is a participant in the lottery. Rank 1 is the worst record and carries the highest odds.
type Team struct {
	ID             string   `bson:"id" json:"id"`
	Name           string   `bson:"name" json:"name"`
	Emails         []string `bson:"emails" json:"emails"`
	Rank           int      `bson:"rank" json:"rank"`
	OddsPercentage float64  `bson:"oddsPercentage" json:"oddsPercentage"`
	Combinations   []int    `bson:"combinations" json:"combinations"`
}

// Combination is one 4-ball subset of the 14-ball universe. TeamID is empty for dead combinations.
type Combination struct {
	ID     int    `bson:"id" json:"id"`
	Balls  []int  `bson:"balls" json:"balls"`
	TeamID string `bson:"teamId" json:"teamId"`
}

// IsDead reports whether no team owns the combination
func (c Combination) IsDead() bool {
	return c.TeamID == ""
}

// DrawnPick binds a lottery pick position to a team through the combination that was drawn
type DrawnPick struct {
	Pick        int         `bson:"pick" json:"pick"`
	Combination Combination `bson:"combination" json:"combination"`
	TeamID      string      `bson:"teamId" json:"teamId"`
	DrawnAt     time.Time   `bson:"drawnAt" json:"drawnAt"`
}

// DraftPick is one position of the final draft order. Combination is nil for positions
// filled by inverse rank.
type DraftPick struct {
	Pick        int          `bson:"pick" json:"pick"`
	TeamID      string       `bson:"teamId" json:"teamId"`
	TeamName    string       `bson:"teamName" json:"teamName"`
	Combination *Combination `bson:"combination,omitempty" json:"combination"`
}

// Verifier is a witness who signed in before the draw
type Verifier struct {
	UserID     string    `bson:"userId" json:"userId"`
	Name       string    `bson:"name" json:"name"`
	Email      string    `bson:"email" json:"email"`
	VerifiedAt time.Time `bson:"verifiedAt" json:"verifiedAt"`
}

// DrawingState holds the ephemeral fields observers poll while a pick is being drawn
type DrawingState struct {
	IsDrawing            bool   `bson:"isDrawing" json:"isDrawing"`
	DrawingStatusMessage string `bson:"drawingStatusMessage" json:"drawingStatusMessage"`
	CurrentDrawingBalls  []int  `bson:"currentDrawingBalls" json:"currentDrawingBalls"`
}

// LotterySession is the aggregate persisted as one document per lottery
type LotterySession struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                  string             `bson:"name" json:"name"`
	AdminID               string             `bson:"adminId" json:"adminId"`
	AdminName             string             `bson:"adminName" json:"adminName"`
	TeamCount             int                `bson:"teamCount" json:"teamCount"`
	RequiredVerifierCount int                `bson:"requiredVerifierCount" json:"requiredVerifierCount"`
	Status                SessionStatus      `bson:"status" json:"status"`
	Teams                 []Team             `bson:"teams" json:"teams"`
	OddsTable             []float64          `bson:"oddsTable" json:"oddsTable"`
	Combinations          []Combination      `bson:"combinations" json:"combinations,omitempty"`
	DrawnPicks            []DrawnPick        `bson:"drawnPicks" json:"drawnPicks"`
	DraftOrder            []DraftPick        `bson:"draftOrder" json:"draftOrder"`
	Verifiers             []Verifier         `bson:"verifiers" json:"verifiers"`
	DrawingState          `bson:",inline"`
	DrawLog               []string           `bson:"drawLog" json:"drawLog,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
	CompletedAt           time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Normalize replaces nil slices with empty ones so the stored document always carries arrays
func (s *LotterySession) Normalize() {
	if s.Teams == nil {
		s.Teams = []Team{}
	}
	for i := range s.Teams {
		if s.Teams[i].Emails == nil {
			s.Teams[i].Emails = []string{}
		}
		if s.Teams[i].Combinations == nil {
			s.Teams[i].Combinations = []int{}
		}
	}
	if s.OddsTable == nil {
		s.OddsTable = []float64{}
	}
	if s.Combinations == nil {
		s.Combinations = []Combination{}
	}
	if s.DrawnPicks == nil {
		s.DrawnPicks = []DrawnPick{}
	}
	if s.DraftOrder == nil {
		s.DraftOrder = []DraftPick{}
	}
	if s.Verifiers == nil {
		s.Verifiers = []Verifier{}
	}
	if s.CurrentDrawingBalls == nil {
		s.CurrentDrawingBalls = []int{}
	}
	if s.DrawLog == nil {
		s.DrawLog = []string{}
	}
}

// TeamByID returns the team with the given id
func (s *LotterySession) TeamByID(id string) (*Team, bool) {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i], true
		}
	}
	return nil, false
}

// HasVerifier reports whether the user already signed in as a verifier
func (s *LotterySession) HasVerifier(userID string) bool {
	for _, v := range s.Verifiers {
		if v.UserID == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor administers the session
func (s *LotterySession) IsAdmin(actorID string) bool {
	return actorID != "" && s.AdminID == actorID
}
