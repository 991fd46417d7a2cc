package lottery

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
)

// Outcome classifies a single ball draw
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeDead      Outcome = "dead"
	OutcomeDuplicate Outcome = "duplicate"
)

// Machine produces one set of four distinct balls, sorted ascending
type Machine interface {
	Draw() ([]int, error)
}

// Source yields uniform integers in [0, n)
type Source interface {
	Intn(n int) (int, error)
}

// CryptoSource reads from crypto/rand
type CryptoSource struct{}

func (CryptoSource) Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}

// SeededSource is a reproducible source for offline simulations
type SeededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *SeededSource) Intn(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n), nil
}

// RandomMachine draws balls without replacement from a Source
type RandomMachine struct {
	src Source
}

func NewRandomMachine(src Source) *RandomMachine {
	if src == nil {
		src = CryptoSource{}
	}
	return &RandomMachine{src: src}
}

// Draw picks four balls uniformly from the ones still in the machine
func (m *RandomMachine) Draw() ([]int, error) {
	remaining := make([]int, TotalBalls)
	for i := range remaining {
		remaining[i] = i + 1
	}
	balls := make([]int, 0, BallsPerDraw)
	for len(balls) < BallsPerDraw {
		idx, err := m.src.Intn(len(remaining))
		if err != nil {
			return nil, err
		}
		balls = append(balls, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	sort.Ints(balls)
	return balls, nil
}

// Attempt is the outcome of resolving one set of balls against a session
type Attempt struct {
	Balls       []int
	Outcome     Outcome
	Combination *models.Combination
	// TeamID is set for accepted and duplicate outcomes
	TeamID string
	// Pick is set only when the attempt was accepted
	Pick *models.DrawnPick
}

// Accepted reports whether the attempt produced a pick
func (a Attempt) Accepted() bool {
	return a.Outcome == OutcomeAccepted
}

// StatusMessage is the transient text observers see for this attempt
func (a Attempt) StatusMessage(teamName string) string {
	switch a.Outcome {
	case OutcomeAccepted:
		return fmt.Sprintf("Pick #%d goes to %s", a.Pick.Pick, teamName)
	case OutcomeDuplicate:
		return fmt.Sprintf("%s has already been selected. Drawing again...", teamName)
	case OutcomeDead:
		return fmt.Sprintf("Combination %s is not assigned to any team. Drawing again...", BallsKey(a.Balls))
	default:
		return fmt.Sprintf("Combination %s is not in play. Drawing again...", BallsKey(a.Balls))
	}
}

// NormalizeBalls validates a draw and returns it sorted ascending
func NormalizeBalls(balls []int) ([]int, error) {
	if len(balls) != BallsPerDraw {
		return nil, fmt.Errorf("%w: expected %d balls, got %d", ErrInvalidBalls, BallsPerDraw, len(balls))
	}
	sorted := append([]int{}, balls...)
	sort.Ints(sorted)
	for i, b := range sorted {
		if b < 1 || b > TotalBalls {
			return nil, fmt.Errorf("%w: ball %d out of range", ErrInvalidBalls, b)
		}
		if i > 0 && sorted[i-1] == b {
			return nil, fmt.Errorf("%w: ball %d repeated", ErrInvalidBalls, b)
		}
	}
	return sorted, nil
}

// NextPick is the pick number the next accepted draw receives
func NextPick(session *models.LotterySession) int {
	return len(session.DrawnPicks) + 1
}

// PicksComplete reports whether every lottery pick has been drawn
func PicksComplete(session *models.LotterySession) bool {
	return len(session.DrawnPicks) >= PicksRequired(len(session.Teams))
}

// Resolve maps a set of balls to its combination and decides whether it yields the next pick.
// Checks run in order: unknown set, dead combination, team already picked.
func Resolve(session *models.LotterySession, balls []int) (Attempt, error) {
	sorted, err := NormalizeBalls(balls)
	if err != nil {
		return Attempt{}, err
	}
	if len(session.Combinations) == 0 {
		return Attempt{}, ErrNotAllocated
	}
	if PicksComplete(session) {
		return Attempt{}, ErrDrawComplete
	}

	attempt := Attempt{Balls: sorted}
	combo, ok := findCombination(session.Combinations, sorted)
	if !ok {
		attempt.Outcome = OutcomeNoMatch
		return attempt, nil
	}
	attempt.Combination = &combo
	if combo.IsDead() {
		attempt.Outcome = OutcomeDead
		return attempt, nil
	}
	attempt.TeamID = combo.TeamID
	for _, p := range session.DrawnPicks {
		if p.TeamID == combo.TeamID {
			attempt.Outcome = OutcomeDuplicate
			return attempt, nil
		}
	}

	attempt.Outcome = OutcomeAccepted
	attempt.Pick = &models.DrawnPick{
		Pick:        NextPick(session),
		Combination: combo,
		TeamID:      combo.TeamID,
		DrawnAt:     time.Now().UTC(),
	}
	return attempt, nil
}

func findCombination(combos []models.Combination, sorted []int) (models.Combination, bool) {
	for _, c := range combos {
		if len(c.Balls) != BallsPerDraw {
			continue
		}
		if c.Balls[0] == sorted[0] && c.Balls[1] == sorted[1] && c.Balls[2] == sorted[2] && c.Balls[3] == sorted[3] {
			return c, true
		}
	}
	return models.Combination{}, false
}

// Drawer runs draws for a session against a ball machine
type Drawer struct {
	machine Machine
}

func NewDrawer(machine Machine) *Drawer {
	if machine == nil {
		machine = NewRandomMachine(nil)
	}
	return &Drawer{machine: machine}
}

// Attempt draws one set of balls and resolves it. A rejected attempt is a collision the
// caller retries; nothing about it needs persisting.
func (d *Drawer) Attempt(session *models.LotterySession) (Attempt, error) {
	if len(session.Combinations) == 0 {
		return Attempt{}, ErrNotAllocated
	}
	if PicksComplete(session) {
		return Attempt{}, ErrDrawComplete
	}
	balls, err := d.machine.Draw()
	if err != nil {
		return Attempt{}, fmt.Errorf("draw balls: %w", err)
	}
	return Resolve(session, balls)
}

// DrawPick keeps drawing until a pick is accepted or maxAttempts is reached.
// Every attempt, including the accepted one, is returned for auditing.
func (d *Drawer) DrawPick(session *models.LotterySession, maxAttempts int) (*models.DrawnPick, []Attempt, error) {
	var attempts []Attempt
	for i := 0; i < maxAttempts; i++ {
		a, err := d.Attempt(session)
		if err != nil {
			return nil, attempts, err
		}
		attempts = append(attempts, a)
		if a.Accepted() {
			return a.Pick, attempts, nil
		}
	}
	return nil, attempts, fmt.Errorf("%w: %d attempts", ErrDrawExhausted, maxAttempts)
}
