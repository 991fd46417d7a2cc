package boltdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// SessionRepository keeps each session as one BSON document keyed by its hex id
type SessionRepository struct {
	db *bolt.DB
}

func NewSessionRepository(db *bolt.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.LotterySession) error {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.Normalize()
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b.Get([]byte(session.ID.Hex())) != nil {
			return fmt.Errorf("insert lottery session: id %s already exists", session.ID.Hex())
		}
		return put(b, session)
	})
}

func (r *SessionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LotterySession, error) {
	var session *models.LotterySession
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		session, err = get(tx.Bucket(sessionsBucket), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) FindByAdmin(ctx context.Context, adminID string) ([]*models.LotterySession, error) {
	sessions := []*models.LotterySession{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, v []byte) error {
			var s models.LotterySession
			if err := decode(v, &s); err != nil {
				return fmt.Errorf("decode lottery session: %w", err)
			}
			if s.AdminID != adminID {
				return nil
			}
			s.Combinations = nil
			s.DrawLog = nil
			s.Normalize()
			sessions = append(sessions, &s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *models.LotterySession) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b.Get([]byte(session.ID.Hex())) == nil {
			return repositories.ErrSessionNotFound
		}
		session.UpdatedAt = time.Now().UTC()
		session.Normalize()
		return put(b, session)
	})
}

func (r *SessionRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.SessionStatus) error {
	return r.mutate(id, func(s *models.LotterySession) error {
		if s.Status != from {
			return repositories.ErrStaleSession
		}
		s.Status = to
		return nil
	})
}

func (r *SessionRepository) SaveAllocation(ctx context.Context, id primitive.ObjectID, combos []models.Combination, teams []models.Team) error {
	return r.mutate(id, func(s *models.LotterySession) error {
		if len(s.Combinations) > 0 {
			return repositories.ErrStaleSession
		}
		if s.Status != models.StatusVerification && s.Status != models.StatusDrawing {
			return repositories.ErrStaleSession
		}
		s.Combinations = combos
		s.Teams = teams
		return nil
	})
}

func (r *SessionRepository) AddVerifier(ctx context.Context, id primitive.ObjectID, verifier models.Verifier, limit int) (bool, error) {
	added := false
	err := r.mutate(id, func(s *models.LotterySession) error {
		if s.Status != models.StatusVerification || len(s.Verifiers) >= limit || s.HasVerifier(verifier.UserID) {
			return errNoChange
		}
		s.Verifiers = append(s.Verifiers, verifier)
		added = true
		return nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	return added, err
}

func (r *SessionRepository) AppendDrawnPick(ctx context.Context, id primitive.ObjectID, pick models.DrawnPick) error {
	if pick.Pick < 1 {
		return fmt.Errorf("append drawn pick: invalid pick number %d", pick.Pick)
	}
	return r.mutate(id, func(s *models.LotterySession) error {
		if s.Status != models.StatusDrawing || len(s.DrawnPicks) != pick.Pick-1 {
			return repositories.ErrStaleSession
		}
		for _, p := range s.DrawnPicks {
			if p.TeamID == pick.TeamID {
				return repositories.ErrStaleSession
			}
		}
		s.DrawnPicks = append(s.DrawnPicks, pick)
		return nil
	})
}

func (r *SessionRepository) SetDrawingState(ctx context.Context, id primitive.ObjectID, state models.DrawingState, logEntry string) error {
	return r.mutate(id, func(s *models.LotterySession) error {
		s.DrawingState = state
		if logEntry != "" {
			s.DrawLog = append(s.DrawLog, logEntry)
		}
		return nil
	})
}

func (r *SessionRepository) SaveDraftOrder(ctx context.Context, id primitive.ObjectID, order []models.DraftPick) error {
	return r.mutate(id, func(s *models.LotterySession) error {
		if s.Status != models.StatusDrawing {
			return repositories.ErrStaleSession
		}
		s.DraftOrder = order
		s.Status = models.StatusReveal
		s.DrawingState = models.DrawingState{}
		return nil
	})
}

func (r *SessionRepository) Complete(ctx context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(s *models.LotterySession) error {
		if s.Status != models.StatusReveal {
			return repositories.ErrStaleSession
		}
		s.Status = models.StatusComplete
		s.CompletedAt = time.Now().UTC()
		return nil
	})
}

// errNoChange aborts a mutation without it being reported as a failure
var errNoChange = errors.New("no change")

// mutate loads, changes and stores a session inside one write transaction
func (r *SessionRepository) mutate(id primitive.ObjectID, fn func(*models.LotterySession) error) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		s, err := get(b, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now().UTC()
		s.Normalize()
		return put(b, s)
	})
}

func get(b *bolt.Bucket, id primitive.ObjectID) (*models.LotterySession, error) {
	data := b.Get([]byte(id.Hex()))
	if data == nil {
		return nil, repositories.ErrSessionNotFound
	}
	var s models.LotterySession
	if err := decode(data, &s); err != nil {
		return nil, fmt.Errorf("decode lottery session: %w", err)
	}
	s.Normalize()
	return &s, nil
}

func put(b *bolt.Bucket, s *models.LotterySession) error {
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode lottery session: %w", err)
	}
	return b.Put([]byte(s.ID.Hex()), data)
}
