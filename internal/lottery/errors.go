package lottery

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the parent of every error caused by bad lottery input.
// Callers must fix the input; retrying cannot succeed.
var ErrConfiguration = errors.New("lottery configuration error")

var (
	ErrInvalidTeamCount = fmt.Errorf("%w: team count must be between %d and %d", ErrConfiguration, MinTeams, MaxTeams)
	ErrOddsMismatch     = fmt.Errorf("%w: odds table length does not match team count", ErrConfiguration)
	ErrInvalidRoster    = fmt.Errorf("%w: invalid team roster", ErrConfiguration)
	ErrQuotaOverflow    = fmt.Errorf("%w: combination quotas exceed the combination space", ErrConfiguration)
	ErrInvalidBalls     = fmt.Errorf("%w: invalid ball draw", ErrConfiguration)
)

var (
	ErrNotAllocated      = errors.New("combinations have not been allocated")
	ErrDrawComplete      = errors.New("all lottery picks have already been drawn")
	ErrDrawIncomplete    = errors.New("lottery picks are still being drawn")
	ErrDrawExhausted     = errors.New("no pick accepted within the attempt limit")
	ErrUnknownTeam       = errors.New("drawn pick references a team outside the roster")
	ErrDuplicatePick     = errors.New("team holds more than one drawn pick")
	ErrMalformedOrder    = errors.New("composed draft order violates its invariants")
	ErrInvalidTransition = errors.New("invalid lottery status transition")
	ErrVerifierQuorum    = errors.New("not enough verifiers have signed in")
)
