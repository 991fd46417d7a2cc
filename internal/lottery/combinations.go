package lottery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/shopspring/decimal"
)

// excludedBalls is the one 4-ball set left out of the universe so exactly 1000 remain
var excludedBalls = [BallsPerDraw]int{11, 12, 13, 14}

// Allocation is the result of partitioning the combination space among teams
type Allocation struct {
	Combinations []models.Combination
	// Owned maps a team id to its combination ids in ascending order
	Owned map[string][]int
}

// GenerateCombinations enumerates every increasing 4-ball tuple from 1..14 in lexicographic
// order, skips 11-12-13-14 and numbers the rest 1..1000. No combination is owned yet.
func GenerateCombinations() []models.Combination {
	combos := make([]models.Combination, 0, TotalCombinations)
	id := 1
	for a := 1; a <= TotalBalls-3; a++ {
		for b := a + 1; b <= TotalBalls-2; b++ {
			for c := b + 1; c <= TotalBalls-1; c++ {
				for d := c + 1; d <= TotalBalls; d++ {
					if [BallsPerDraw]int{a, b, c, d} == excludedBalls {
						continue
					}
					combos = append(combos, models.Combination{ID: id, Balls: []int{a, b, c, d}})
					id++
				}
			}
		}
	}
	return combos
}

// Quota is the number of combinations a team with the given odds receives, rounded half up
func Quota(oddsPercentage float64) int {
	return int(decimal.NewFromFloat(oddsPercentage).
		Mul(decimal.NewFromInt(TotalCombinations)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart())
}

// ValidateRoster checks the team count and that ranks are a permutation of 1..N
func ValidateRoster(teams []models.Team) error {
	if len(teams) < MinTeams || len(teams) > MaxTeams {
		return ErrInvalidTeamCount
	}
	seenRank := make(map[int]bool, len(teams))
	seenID := make(map[string]bool, len(teams))
	for _, t := range teams {
		if t.ID == "" {
			return fmt.Errorf("%w: team with rank %d has no id", ErrInvalidRoster, t.Rank)
		}
		if seenID[t.ID] {
			return fmt.Errorf("%w: duplicate team id %q", ErrInvalidRoster, t.ID)
		}
		seenID[t.ID] = true
		if t.Rank < 1 || t.Rank > len(teams) {
			return fmt.Errorf("%w: rank %d out of range 1..%d", ErrInvalidRoster, t.Rank, len(teams))
		}
		if seenRank[t.Rank] {
			return fmt.Errorf("%w: duplicate rank %d", ErrInvalidRoster, t.Rank)
		}
		seenRank[t.Rank] = true
	}
	return nil
}

// ByRank returns a copy of teams sorted by ascending rank
func ByRank(teams []models.Team) []models.Team {
	sorted := make([]models.Team, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return sorted
}

// Allocate hands out contiguous runs of combinations to teams in rank order. Rank r receives
// Quota(odds[r-1]) combinations starting where rank r-1 stopped. Whatever is left over stays dead.
// The same roster and odds always produce the same allocation.
func Allocate(teams []models.Team, odds []float64) (*Allocation, error) {
	if err := ValidateRoster(teams); err != nil {
		return nil, err
	}
	if len(odds) != len(teams) {
		return nil, fmt.Errorf("%w: %d odds for %d teams", ErrOddsMismatch, len(odds), len(teams))
	}

	combos := GenerateCombinations()
	owned := make(map[string][]int, len(teams))
	cursor := 0
	for _, team := range ByRank(teams) {
		quota := Quota(odds[team.Rank-1])
		if cursor+quota > len(combos) {
			return nil, fmt.Errorf("%w: team %s needs %d more combinations at %d", ErrQuotaOverflow, team.ID, quota, cursor)
		}
		ids := make([]int, 0, quota)
		for i := cursor; i < cursor+quota; i++ {
			combos[i].TeamID = team.ID
			ids = append(ids, combos[i].ID)
		}
		owned[team.ID] = ids
		cursor += quota
	}

	return &Allocation{Combinations: combos, Owned: owned}, nil
}

// Apply writes the allocation onto a roster, returning updated copies of the teams
func (a *Allocation) Apply(teams []models.Team) []models.Team {
	out := make([]models.Team, len(teams))
	for i, t := range teams {
		t.Combinations = append([]int{}, a.Owned[t.ID]...)
		out[i] = t
	}
	return out
}

// AssignedCount is the number of combinations owned by some team
func (a *Allocation) AssignedCount() int {
	n := 0
	for _, ids := range a.Owned {
		n += len(ids)
	}
	return n
}

// BallsKey renders sorted balls as "1-2-3-4"
func BallsKey(balls []int) string {
	parts := make([]string, len(balls))
	for i, b := range balls {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, "-")
}
