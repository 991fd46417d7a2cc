// Package lottery implements the draft lottery engine: odds lookup, combination allocation,
// ball draws, draft order composition and the session status transitions.
// Everything here works on session snapshots; persistence belongs to the caller.
package lottery

const (
	MinTeams          = 1
	MaxTeams          = 14
	TotalBalls        = 14
	BallsPerDraw      = 4
	TotalCombinations = 1000
	MaxLotteryPicks   = 4
)

// nbaOdds is the official lottery distribution, highest odds first
var nbaOdds = [MaxTeams]float64{14.0, 14.0, 14.0, 12.5, 10.5, 9.0, 7.5, 6.0, 4.5, 3.0, 2.0, 1.5, 1.0, 0.5}

// OddsFor returns the first teamCount percentages of the official table. Rank r gets entry r-1.
// Unused percentage mass is not redistributed.
func OddsFor(teamCount int) ([]float64, error) {
	if teamCount < MinTeams || teamCount > MaxTeams {
		return nil, ErrInvalidTeamCount
	}
	odds := make([]float64, teamCount)
	copy(odds, nbaOdds[:teamCount])
	return odds, nil
}

// OddsForRank returns the percentage assigned to a rank
func OddsForRank(rank int) (float64, error) {
	if rank < 1 || rank > MaxTeams {
		return 0, ErrInvalidRoster
	}
	return nbaOdds[rank-1], nil
}

// PicksRequired is the number of picks decided by the draw
func PicksRequired(teamCount int) int {
	if teamCount < MaxLotteryPicks {
		return teamCount
	}
	return MaxLotteryPicks
}
