package lottery

import (
	"testing"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomMachineDrawsFourDistinctSortedBalls(t *testing.T) {
	m := NewRandomMachine(NewSeededSource(7))
	for i := 0; i < 500; i++ {
		balls, err := m.Draw()
		require.NoError(t, err)
		sorted, err := NormalizeBalls(balls)
		require.NoError(t, err)
		assert.Equal(t, sorted, balls)
	}
}

func TestCryptoMachine(t *testing.T) {
	balls, err := NewRandomMachine(nil).Draw()
	require.NoError(t, err)
	_, err = NormalizeBalls(balls)
	assert.NoError(t, err)
}

func TestNormalizeBalls(t *testing.T) {
	sorted, err := NormalizeBalls([]int{9, 3, 14, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 9, 14}, sorted)

	for _, bad := range [][]int{{1, 2, 3}, {1, 2, 3, 4, 5}, {0, 2, 3, 4}, {1, 2, 3, 15}, {2, 2, 3, 4}} {
		_, err := NormalizeBalls(bad)
		assert.ErrorIs(t, err, ErrInvalidBalls, "%v", bad)
	}
}

func TestResolveOutcomes(t *testing.T) {
	s := allocatedSession(t, 4)

	excluded, err := Resolve(s, []int{14, 13, 12, 11})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, excluded.Outcome)
	assert.Nil(t, excluded.Pick)

	dead, err := Resolve(s, []int{10, 12, 13, 14})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDead, dead.Outcome)
	assert.Equal(t, 1000, dead.Combination.ID)
	assert.Nil(t, dead.Pick)

	accepted, err := Resolve(s, []int{4, 3, 2, 1})
	require.NoError(t, err)
	require.True(t, accepted.Accepted())
	assert.Equal(t, 1, accepted.Pick.Pick)
	assert.Equal(t, "team-1", accepted.Pick.TeamID)
	assert.Equal(t, []int{1, 2, 3, 4}, accepted.Pick.Combination.Balls)

	s.DrawnPicks = append(s.DrawnPicks, *accepted.Pick)
	dup, err := Resolve(s, ballsOwnedBy(t, s, "team-1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, dup.Outcome)
	assert.Equal(t, "team-1", dup.TeamID)
	assert.Contains(t, dup.StatusMessage("Team 1"), "already been selected")
}

func TestResolveRequiresAllocation(t *testing.T) {
	s := &models.LotterySession{Teams: newTeams(4)}
	_, err := Resolve(s, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrNotAllocated)

	_, err = NewDrawer(&scriptedMachine{}).Attempt(s)
	assert.ErrorIs(t, err, ErrNotAllocated)
}

func TestDrawPickSkipsCollisionsWithoutRecording(t *testing.T) {
	s := allocatedSession(t, 4)
	team2 := ballsOwnedBy(t, s, "team-2")
	machine := &scriptedMachine{draws: [][]int{
		{10, 12, 13, 14}, // dead
		{11, 12, 13, 14}, // excluded
		{10, 12, 13, 14}, // dead again
		team2,
	}}
	d := NewDrawer(machine)

	pick, attempts, err := d.DrawPick(s, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 4)
	assert.Equal(t, OutcomeDead, attempts[0].Outcome)
	assert.Equal(t, OutcomeNoMatch, attempts[1].Outcome)
	assert.Equal(t, OutcomeDead, attempts[2].Outcome)
	assert.Equal(t, "team-2", pick.TeamID)
	assert.Equal(t, 1, pick.Pick)
	assert.Empty(t, s.DrawnPicks, "drawer never mutates the session")
}

func TestDrawPickAdversarialRepeats(t *testing.T) {
	s := allocatedSession(t, 14)
	team5 := ballsOwnedBy(t, s, "team-5")
	team9 := ballsOwnedBy(t, s, "team-9")

	var script [][]int
	script = append(script, team5)
	for i := 0; i < 50; i++ {
		script = append(script, team5, []int{11, 12, 13, 14})
	}
	script = append(script, team9)
	d := NewDrawer(&scriptedMachine{draws: script})

	first, _, err := d.DrawPick(s, 200)
	require.NoError(t, err)
	s.DrawnPicks = append(s.DrawnPicks, *first)

	second, attempts, err := d.DrawPick(s, 200)
	require.NoError(t, err)
	assert.Equal(t, "team-9", second.TeamID)
	assert.Equal(t, 2, second.Pick)
	assert.Len(t, attempts, 101)
}

func TestDrawPickExhausted(t *testing.T) {
	s := allocatedSession(t, 2)
	d := NewDrawer(&scriptedMachine{draws: [][]int{{10, 12, 13, 14}, {10, 12, 13, 14}}})
	_, attempts, err := d.DrawPick(s, 2)
	assert.ErrorIs(t, err, ErrDrawExhausted)
	assert.Len(t, attempts, 2)
}

func TestDrawStopsWhenPicksComplete(t *testing.T) {
	s := allocatedSession(t, 2)
	d := NewDrawer(NewRandomMachine(NewSeededSource(1)))
	for len(s.DrawnPicks) < PicksRequired(2) {
		pick, _, err := d.DrawPick(s, 10000)
		require.NoError(t, err)
		s.DrawnPicks = append(s.DrawnPicks, *pick)
	}
	_, err := d.Attempt(s)
	assert.ErrorIs(t, err, ErrDrawComplete)
}

func TestSeededDrawsNeverRepeatATeam(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		for _, n := range []int{1, 3, 4, 8, 14} {
			s := allocatedSession(t, n)
			d := NewDrawer(NewRandomMachine(NewSeededSource(seed)))
			seen := map[string]bool{}
			for !PicksComplete(s) {
				pick, _, err := d.DrawPick(s, 100000)
				require.NoError(t, err)
				require.False(t, seen[pick.TeamID], "seed %d n %d repeated %s", seed, n, pick.TeamID)
				seen[pick.TeamID] = true
				s.DrawnPicks = append(s.DrawnPicks, *pick)
			}
			assert.Len(t, s.DrawnPicks, PicksRequired(n))
		}
	}
}

func TestResumeFromPersistedPicks(t *testing.T) {
	s := allocatedSession(t, 6)
	s.DrawnPicks = []models.DrawnPick{
		{Pick: 1, TeamID: "team-3", Combination: s.Combinations[280]},
		{Pick: 2, TeamID: "team-1", Combination: s.Combinations[0]},
	}
	d := NewDrawer(&scriptedMachine{draws: [][]int{ballsOwnedBy(t, s, "team-6")}})
	pick, _, err := d.DrawPick(s, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, pick.Pick)
	assert.Equal(t, "team-6", pick.TeamID)
}
