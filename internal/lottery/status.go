package lottery

import (
	"fmt"
	"strings"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
)

var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.StatusSetup:        {models.StatusVerification, models.StatusDrawing},
	models.StatusVerification: {models.StatusDrawing},
	models.StatusDrawing:      {models.StatusReveal},
	models.StatusReveal:       {models.StatusComplete},
}

// CanTransition reports whether the status graph has an edge from -> to
func CanTransition(from, to models.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StageAfterSetup is verification when witnesses are required, drawing otherwise
func StageAfterSetup(requiredVerifiers int) models.SessionStatus {
	if requiredVerifiers > 0 {
		return models.StatusVerification
	}
	return models.StatusDrawing
}

// CheckTransition validates moving the session to a new status, including the guards
// attached to each edge.
func CheckTransition(session *models.LotterySession, to models.SessionStatus) error {
	from := session.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	switch {
	case from == models.StatusSetup:
		if to != StageAfterSetup(session.RequiredVerifierCount) {
			return fmt.Errorf("%w: %s -> %s with %d required verifiers", ErrInvalidTransition, from, to, session.RequiredVerifierCount)
		}
		if err := ValidateRoster(session.Teams); err != nil {
			return err
		}
		for _, t := range session.Teams {
			if strings.TrimSpace(t.Name) == "" {
				return fmt.Errorf("%w: team %s has no name", ErrInvalidRoster, t.ID)
			}
		}
	case from == models.StatusVerification && to == models.StatusDrawing:
		if !MayStartDraw(session) {
			return fmt.Errorf("%w: %d of %d", ErrVerifierQuorum, len(session.Verifiers), session.RequiredVerifierCount)
		}
	case to == models.StatusReveal:
		if !PicksComplete(session) {
			return ErrDrawIncomplete
		}
		if len(session.DraftOrder) != len(session.Teams) {
			return fmt.Errorf("%w: draft order not composed", ErrInvalidTransition)
		}
	}
	return nil
}

// MayStartDraw is the verifier gate: enough witnesses have signed in
func MayStartDraw(session *models.LotterySession) bool {
	return len(session.Verifiers) >= session.RequiredVerifierCount
}

// IsEditable reports whether teams may still be changed
func IsEditable(status models.SessionStatus) bool {
	return status == models.StatusSetup || status == models.StatusVerification
}
