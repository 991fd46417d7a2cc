package lottery

import (
	"fmt"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
)

// ComposeDraftOrder places the drawn picks first, in the order they were drawn, then every
// other team by ascending rank. The result always covers the whole roster exactly once.
func ComposeDraftOrder(teams []models.Team, picks []models.DrawnPick) ([]models.DraftPick, error) {
	if err := ValidateRoster(teams); err != nil {
		return nil, err
	}
	byID := make(map[string]models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	order := make([]models.DraftPick, 0, len(teams))
	drawn := make(map[string]bool, len(picks))
	for _, p := range picks {
		team, ok := byID[p.TeamID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, p.TeamID)
		}
		if drawn[p.TeamID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePick, p.TeamID)
		}
		drawn[p.TeamID] = true
		combo := p.Combination
		order = append(order, models.DraftPick{
			Pick:        len(order) + 1,
			TeamID:      team.ID,
			TeamName:    team.Name,
			Combination: &combo,
		})
	}

	for _, team := range ByRank(teams) {
		if drawn[team.ID] {
			continue
		}
		order = append(order, models.DraftPick{
			Pick:     len(order) + 1,
			TeamID:   team.ID,
			TeamName: team.Name,
		})
	}

	if err := ValidateDraftOrder(teams, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ValidateDraftOrder checks that positions run 1..N and each team appears exactly once
func ValidateDraftOrder(teams []models.Team, order []models.DraftPick) error {
	if len(order) != len(teams) {
		return fmt.Errorf("%w: %d picks for %d teams", ErrMalformedOrder, len(order), len(teams))
	}
	roster := make(map[string]bool, len(teams))
	for _, t := range teams {
		roster[t.ID] = true
	}
	seen := make(map[string]bool, len(order))
	for i, p := range order {
		if p.Pick != i+1 {
			return fmt.Errorf("%w: position %d labelled %d", ErrMalformedOrder, i+1, p.Pick)
		}
		if !roster[p.TeamID] || seen[p.TeamID] {
			return fmt.Errorf("%w: team %q", ErrMalformedOrder, p.TeamID)
		}
		seen[p.TeamID] = true
	}
	return nil
}

// RevealSequence returns the draft order from the last pick to the first
func RevealSequence(order []models.DraftPick) []models.DraftPick {
	out := make([]models.DraftPick, len(order))
	for i, p := range order {
		out[len(order)-1-i] = p
	}
	return out
}
