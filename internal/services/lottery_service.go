package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/lottery"
	"github.com/ArowuTest/draft-lottery-backend/internal/metrics"
	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/realtime"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Compile-time check to ensure LotteryServiceImpl implements LotteryService
var _ LotteryService = (*LotteryServiceImpl)(nil)

// LotteryOptions tunes the draw
type LotteryOptions struct {
	// DrawDelay keeps drawn balls on screen before the result is announced
	DrawDelay time.Duration
	// MaxDrawAttempts bounds consecutive collisions for one pick in DrawRemaining
	MaxDrawAttempts int
	// Machine draws balls; nil means crypto/rand
	Machine lottery.Machine
}

// LotteryServiceImpl drives lottery sessions through the engine and persists every step
type LotteryServiceImpl struct {
	sessions  repositories.SessionRepository
	publisher realtime.Publisher
	drawer    *lottery.Drawer
	opts      LotteryOptions
}

// NewLotteryService creates a new LotteryServiceImpl
func NewLotteryService(sessions repositories.SessionRepository, publisher realtime.Publisher, opts LotteryOptions) *LotteryServiceImpl {
	if opts.MaxDrawAttempts <= 0 {
		opts.MaxDrawAttempts = 10000
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &LotteryServiceImpl{
		sessions:  sessions,
		publisher: publisher,
		drawer:    lottery.NewDrawer(opts.Machine),
		opts:      opts,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.LiveEvent) error { return nil }

// CreateSession creates a session in setup with default teams ranked 1..N
func (s *LotteryServiceImpl) CreateSession(ctx context.Context, actor models.Actor, input CreateSessionInput) (*models.LotterySession, error) {
	odds, err := lottery.OddsFor(input.TeamCount)
	if err != nil {
		return nil, err
	}
	if input.RequiredVerifierCount < 0 {
		return nil, fmt.Errorf("%w: required verifier count must not be negative", lottery.ErrConfiguration)
	}
	if len(input.TeamNames) > input.TeamCount {
		return nil, fmt.Errorf("%w: %d team names for %d teams", lottery.ErrConfiguration, len(input.TeamNames), input.TeamCount)
	}

	teams := make([]models.Team, input.TeamCount)
	for i := range teams {
		name := fmt.Sprintf("Team %d", i+1)
		if i < len(input.TeamNames) && strings.TrimSpace(input.TeamNames[i]) != "" {
			name = strings.TrimSpace(input.TeamNames[i])
		}
		teams[i] = models.Team{
			ID:             fmt.Sprintf("team-%d", i+1),
			Name:           name,
			Emails:         []string{},
			Rank:           i + 1,
			OddsPercentage: odds[i],
			Combinations:   []int{},
		}
	}

	session := &models.LotterySession{
		Name:                  strings.TrimSpace(input.Name),
		AdminID:               actor.ID,
		AdminName:             actor.DisplayName,
		TeamCount:             input.TeamCount,
		RequiredVerifierCount: input.RequiredVerifierCount,
		Status:                models.StatusSetup,
		Teams:                 teams,
		OddsTable:             odds,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		zap.L().Error("failed to create lottery session", zap.Error(err), zap.String("adminId", actor.ID))
		return nil, fmt.Errorf("failed to create lottery session: %w", err)
	}

	metrics.RecordSessionCreated()
	zap.L().Info("lottery session created",
		zap.String("sessionId", session.ID.Hex()),
		zap.String("adminId", actor.ID),
		zap.Int("teamCount", input.TeamCount),
		zap.Int("requiredVerifiers", input.RequiredVerifierCount))
	return session, nil
}

// GetSession returns a session snapshot
func (s *LotteryServiceImpl) GetSession(ctx context.Context, id primitive.ObjectID) (*models.LotterySession, error) {
	return s.sessions.FindByID(ctx, id)
}

// ListAdminSessions lists the sessions an admin created, newest first
func (s *LotteryServiceImpl) ListAdminSessions(ctx context.Context, adminID string) ([]*models.LotterySession, error) {
	return s.sessions.FindByAdmin(ctx, adminID)
}

// UpdateTeam edits a team's name or contact emails before the draw starts
func (s *LotteryServiceImpl) UpdateTeam(ctx context.Context, actor models.Actor, id primitive.ObjectID, teamID string, update TeamUpdate) (*models.LotterySession, error) {
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !lottery.IsEditable(session.Status) {
		return nil, fmt.Errorf("%w: teams are locked once the draw starts", ErrWrongStatus)
	}
	team, ok := session.TeamByID(teamID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: team name must not be empty", lottery.ErrConfiguration)
		}
		team.Name = name
	}
	if update.Emails != nil {
		team.Emails = normalizeEmails(update.Emails)
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	zap.L().Info("lottery team updated", zap.String("sessionId", id.Hex()), zap.String("teamId", teamID))
	return session, nil
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// OpenVerification leaves setup. With no verifiers required the session goes straight to
// drawing and its combinations are allocated.
func (s *LotteryServiceImpl) OpenVerification(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error) {
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	next := lottery.StageAfterSetup(session.RequiredVerifierCount)
	if err := s.transition(ctx, session, next); err != nil {
		return nil, err
	}
	if next == models.StatusDrawing {
		return s.ensureAllocation(ctx, session)
	}
	return session, nil
}

// AddVerifier signs the actor in as a witness. Repeat sign-ins and sign-ins beyond the
// required count are ignored.
func (s *LotteryServiceImpl) AddVerifier(ctx context.Context, actor models.Actor, id primitive.ObjectID) (bool, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if session.Status != models.StatusVerification {
		return false, fmt.Errorf("%w: verifiers sign in during verification, session is %s", ErrWrongStatus, session.Status)
	}
	if session.HasVerifier(actor.ID) {
		return false, nil
	}

	verifier := models.Verifier{
		UserID:     actor.ID,
		Name:       actor.DisplayName,
		Email:      actor.Email,
		VerifiedAt: time.Now().UTC(),
	}
	added, err := s.sessions.AddVerifier(ctx, id, verifier, session.RequiredVerifierCount)
	if err != nil {
		return false, fmt.Errorf("failed to add verifier: %w", err)
	}
	if added {
		zap.L().Info("lottery verifier signed in", zap.String("sessionId", id.Hex()), zap.String("userId", actor.ID))
		s.publish(ctx, models.LiveEvent{Type: models.LiveEventVerify, SessionID: id.Hex(), Status: session.Status, Verifier: &verifier})
	}
	return added, nil
}

// Allocate returns the session's combinations, allocating them on first use
func (s *LotteryServiceImpl) Allocate(ctx context.Context, actor models.Actor, id primitive.ObjectID) ([]models.Combination, error) {
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(session.Combinations) > 0 {
		return session.Combinations, nil
	}
	if session.Status != models.StatusVerification && session.Status != models.StatusDrawing {
		return nil, fmt.Errorf("%w: combinations are allocated during verification or drawing, session is %s", ErrWrongStatus, session.Status)
	}
	session, err = s.ensureAllocation(ctx, session)
	if err != nil {
		return nil, err
	}
	return session.Combinations, nil
}

// StartDrawing moves verification -> drawing once enough verifiers signed in
func (s *LotteryServiceImpl) StartDrawing(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error) {
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusSetup && session.RequiredVerifierCount == 0 {
		return s.OpenVerification(ctx, actor, id)
	}
	if err := s.transition(ctx, session, models.StatusDrawing); err != nil {
		return nil, err
	}
	return s.ensureAllocation(ctx, session)
}

// DrawNextPick draws one set of balls. The attempt is recorded (pick and audit line) before the
// presentation pause, so interrupting the pause only shortens the announcement.
func (s *LotteryServiceImpl) DrawNextPick(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*DrawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusDrawing {
		return nil, fmt.Errorf("%w: picks are drawn during drawing, session is %s", ErrWrongStatus, session.Status)
	}
	if session, err = s.ensureAllocation(ctx, session); err != nil {
		return nil, err
	}

	attempt, err := s.drawer.Attempt(session)
	if err != nil {
		return nil, err
	}
	pickNumber := lottery.NextPick(session)

	teamName := ""
	if team, ok := session.TeamByID(attempt.TeamID); ok {
		teamName = team.Name
	}
	result := &DrawResult{
		Outcome: string(attempt.Outcome),
		Balls:   attempt.Balls,
		Message: attempt.StatusMessage(teamName),
		Retry:   !attempt.Accepted(),
	}
	metrics.RecordDrawAttempt(string(attempt.Outcome))

	logEntry := fmt.Sprintf("%s: pick %d drew %s -> %s", time.Now().UTC().Format(time.RFC3339), pickNumber, lottery.BallsKey(attempt.Balls), attempt.Outcome)
	if attempt.TeamID != "" {
		logEntry += " (" + attempt.TeamID + ")"
	}

	// from here on the attempt is committed and must reach storage even if the caller goes away
	persistCtx := context.WithoutCancel(ctx)

	if attempt.Accepted() {
		if err := s.sessions.AppendDrawnPick(persistCtx, id, *attempt.Pick); err != nil {
			zap.L().Warn("drawn pick not persisted", zap.Error(err), zap.String("sessionId", id.Hex()), zap.Int("pick", pickNumber))
			return nil, fmt.Errorf("failed to record pick %d: %w", pickNumber, err)
		}
		result.Pick = attempt.Pick
		result.Complete = pickNumber >= lottery.PicksRequired(len(session.Teams))
		zap.L().Info("lottery pick drawn",
			zap.String("sessionId", id.Hex()),
			zap.Int("pick", pickNumber),
			zap.String("teamId", attempt.TeamID),
			zap.Int("combinationId", attempt.Pick.Combination.ID))
	} else {
		zap.L().Debug("lottery draw collision",
			zap.String("sessionId", id.Hex()),
			zap.Int("pick", pickNumber),
			zap.String("outcome", string(attempt.Outcome)),
			zap.Ints("balls", attempt.Balls))
	}

	drawing := models.DrawingState{
		IsDrawing:            true,
		DrawingStatusMessage: fmt.Sprintf("Drawing pick #%d...", pickNumber),
		CurrentDrawingBalls:  attempt.Balls,
	}
	if err := s.sessions.SetDrawingState(persistCtx, id, drawing, logEntry); err != nil {
		return nil, fmt.Errorf("failed to record draw attempt: %w", err)
	}
	s.publish(persistCtx, models.LiveEvent{Type: models.LiveEventDrawing, SessionID: id.Hex(), Status: session.Status, DrawingState: drawing})

	if err := s.pause(ctx); err != nil {
		zap.L().Info("draw announcement interrupted", zap.Error(err), zap.String("sessionId", id.Hex()), zap.Int("pick", pickNumber))
	}

	after := models.DrawingState{
		IsDrawing:            result.Retry,
		DrawingStatusMessage: result.Message,
		CurrentDrawingBalls:  attempt.Balls,
	}
	if err := s.sessions.SetDrawingState(persistCtx, id, after, ""); err != nil {
		// the attempt itself is already stored; observers catch up on the next write
		zap.L().Warn("failed to update drawing state", zap.Error(err), zap.String("sessionId", id.Hex()))
	}
	event := models.LiveEvent{Type: models.LiveEventDrawing, SessionID: id.Hex(), Status: session.Status, DrawingState: after}
	if result.Pick != nil {
		event.Type = models.LiveEventPick
		event.Pick = result.Pick
	}
	s.publish(persistCtx, event)

	return result, nil
}

// DrawRemaining draws until every lottery pick is resolved
func (s *LotteryServiceImpl) DrawRemaining(ctx context.Context, actor models.Actor, id primitive.ObjectID) ([]models.DrawnPick, error) {
	collisions := 0
	for {
		result, err := s.DrawNextPick(ctx, actor, id)
		if errors.Is(err, lottery.ErrDrawComplete) {
			break
		}
		if err != nil {
			return nil, err
		}
		if result.Complete {
			break
		}
		if result.Retry {
			collisions++
			if collisions >= s.opts.MaxDrawAttempts {
				return nil, fmt.Errorf("%w: %d consecutive collisions", lottery.ErrDrawExhausted, collisions)
			}
			continue
		}
		collisions = 0
	}

	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.DrawnPicks, nil
}

// ComposeDraftOrder builds the final order and moves drawing -> reveal in the same write.
// Once composed, the stored order is returned unchanged.
func (s *LotteryServiceImpl) ComposeDraftOrder(ctx context.Context, actor models.Actor, id primitive.ObjectID) ([]models.DraftPick, error) {
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if (session.Status == models.StatusReveal || session.Status == models.StatusComplete) && len(session.DraftOrder) > 0 {
		return session.DraftOrder, nil
	}
	if session.Status != models.StatusDrawing {
		return nil, fmt.Errorf("%w: draft order is composed after drawing, session is %s", ErrWrongStatus, session.Status)
	}
	if !lottery.PicksComplete(session) {
		return nil, fmt.Errorf("%w: %d of %d picks drawn", lottery.ErrDrawIncomplete, len(session.DrawnPicks), lottery.PicksRequired(len(session.Teams)))
	}

	order, err := lottery.ComposeDraftOrder(session.Teams, session.DrawnPicks)
	if err != nil {
		zap.L().Error("draft order composition failed", zap.Error(err), zap.String("sessionId", id.Hex()))
		return nil, err
	}
	session.DraftOrder = order
	if err := lottery.CheckTransition(session, models.StatusReveal); err != nil {
		return nil, err
	}
	if err := s.sessions.SaveDraftOrder(ctx, id, order); err != nil {
		return nil, fmt.Errorf("failed to save draft order: %w", err)
	}

	metrics.RecordTransition(string(models.StatusReveal))
	zap.L().Info("draft order composed", zap.String("sessionId", id.Hex()), zap.String("firstPick", order[0].TeamID))
	s.publish(ctx, models.LiveEvent{Type: models.LiveEventOrder, SessionID: id.Hex(), Status: models.StatusReveal, DraftOrder: order})
	return order, nil
}

// MarkComplete ends the reveal. Completing a complete session is a no-op.
func (s *LotteryServiceImpl) MarkComplete(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error) {
	session, err := s.loadAsAdmin(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusComplete {
		return session, nil
	}
	if err := lottery.CheckTransition(session, models.StatusComplete); err != nil {
		return nil, err
	}
	if err := s.sessions.Complete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to complete lottery: %w", err)
	}

	metrics.RecordTransition(string(models.StatusComplete))
	zap.L().Info("lottery complete", zap.String("sessionId", id.Hex()))
	s.publish(ctx, models.LiveEvent{Type: models.LiveEventStatus, SessionID: id.Hex(), Status: models.StatusComplete})
	return s.sessions.FindByID(ctx, id)
}

// ExportCombinations writes the allocation as CSV
func (s *LotteryServiceImpl) ExportCombinations(ctx context.Context, id primitive.ObjectID, w io.Writer) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if len(session.Combinations) == 0 {
		return lottery.ErrNotAllocated
	}
	return lottery.WriteCombinationsCSV(w, session.Combinations, session.Teams)
}

// ExportDraftOrder writes the final draft order as CSV
func (s *LotteryServiceImpl) ExportDraftOrder(ctx context.Context, id primitive.ObjectID, w io.Writer) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if len(session.DraftOrder) == 0 {
		return fmt.Errorf("%w: draft order not composed yet", ErrWrongStatus)
	}
	return lottery.WriteDraftOrderCSV(w, session.DraftOrder)
}

// RevealSequence returns the draft order from the last pick to the first
func (s *LotteryServiceImpl) RevealSequence(ctx context.Context, id primitive.ObjectID) ([]models.DraftPick, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(session.DraftOrder) == 0 {
		return nil, fmt.Errorf("%w: draft order not composed yet", ErrWrongStatus)
	}
	return lottery.RevealSequence(session.DraftOrder), nil
}

func (s *LotteryServiceImpl) loadAsAdmin(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.LotterySession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin(actor.ID) {
		return nil, ErrForbidden
	}
	return session, nil
}

// transition validates and stores a status change, updating the snapshot on success
func (s *LotteryServiceImpl) transition(ctx context.Context, session *models.LotterySession, to models.SessionStatus) error {
	if err := lottery.CheckTransition(session, to); err != nil {
		return err
	}
	from := session.Status
	if err := s.sessions.TransitionStatus(ctx, session.ID, from, to); err != nil {
		return fmt.Errorf("failed to move lottery from %s to %s: %w", from, to, err)
	}
	session.Status = to

	metrics.RecordTransition(string(to))
	zap.L().Info("lottery status changed", zap.String("sessionId", session.ID.Hex()), zap.String("from", string(from)), zap.String("to", string(to)))
	s.publish(ctx, models.LiveEvent{Type: models.LiveEventStatus, SessionID: session.ID.Hex(), Status: to})
	return nil
}

// ensureAllocation allocates combinations once. If another writer allocated first, the
// stored allocation wins.
func (s *LotteryServiceImpl) ensureAllocation(ctx context.Context, session *models.LotterySession) (*models.LotterySession, error) {
	if len(session.Combinations) > 0 {
		return session, nil
	}
	odds := session.OddsTable
	if len(odds) == 0 {
		var err error
		if odds, err = lottery.OddsFor(len(session.Teams)); err != nil {
			return nil, err
		}
	}
	alloc, err := lottery.Allocate(session.Teams, odds)
	if err != nil {
		return nil, err
	}
	teams := alloc.Apply(session.Teams)

	err = s.sessions.SaveAllocation(ctx, session.ID, alloc.Combinations, teams)
	if errors.Is(err, repositories.ErrStaleSession) {
		stored, findErr := s.sessions.FindByID(ctx, session.ID)
		if findErr != nil {
			return nil, findErr
		}
		if len(stored.Combinations) > 0 {
			return stored, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save allocation: %w", err)
	}

	session.Combinations = alloc.Combinations
	session.Teams = teams
	zap.L().Info("lottery combinations allocated",
		zap.String("sessionId", session.ID.Hex()),
		zap.Int("assigned", alloc.AssignedCount()),
		zap.Int("dead", lottery.TotalCombinations-alloc.AssignedCount()))
	return session, nil
}

func (s *LotteryServiceImpl) pause(ctx context.Context) error {
	if s.opts.DrawDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.DrawDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish is best effort; observers can always fall back to polling the session
func (s *LotteryServiceImpl) publish(ctx context.Context, event models.LiveEvent) {
	event.At = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		zap.L().Warn("failed to publish live event", zap.Error(err), zap.String("sessionId", event.SessionID), zap.String("type", string(event.Type)))
	}
}
