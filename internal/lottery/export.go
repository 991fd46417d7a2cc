package lottery

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
)

// CombinationsHeader is consumed by downstream tooling and must not change
var CombinationsHeader = []string{"Combination ID", "Ball 1", "Ball 2", "Ball 3", "Ball 4", "Team ID", "Team Name"}

// DraftOrderHeader heads the draft order export
var DraftOrderHeader = []string{"Pick", "Team Name", "Combination"}

// WriteCombinationsCSV writes one row per combination, balls ascending. Dead combinations
// have empty team columns.
func WriteCombinationsCSV(w io.Writer, combos []models.Combination, teams []models.Team) error {
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CombinationsHeader); err != nil {
		return err
	}
	for _, c := range combos {
		if len(c.Balls) != BallsPerDraw {
			return fmt.Errorf("%w: combination %d has %d balls", ErrInvalidBalls, c.ID, len(c.Balls))
		}
		row := []string{
			strconv.Itoa(c.ID),
			strconv.Itoa(c.Balls[0]),
			strconv.Itoa(c.Balls[1]),
			strconv.Itoa(c.Balls[2]),
			strconv.Itoa(c.Balls[3]),
			c.TeamID,
			names[c.TeamID],
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDraftOrderCSV writes the final order; fallback picks show N/A as their combination
func WriteDraftOrderCSV(w io.Writer, order []models.DraftPick) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DraftOrderHeader); err != nil {
		return err
	}
	for _, p := range order {
		combo := "N/A"
		if p.Combination != nil {
			combo = BallsKey(p.Combination.Balls)
		}
		if err := cw.Write([]string{strconv.Itoa(p.Pick), p.TeamName, combo}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
