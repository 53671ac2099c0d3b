package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/internal/obslog"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchAlreadyExists = errors.New("match already exists")
	ErrInvalidMatchID     = errors.New("invalid match ID")
	ErrTooManyMatches     = errors.New("too many matches")
)

var matchIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Notifier receives the results of handled events. Both methods are called
// while the match lock is held, so calls for one match arrive in commit
// order. Implementations must not call back into the Manager.
type Notifier interface {
	Broadcast(matchID string, state engine.GameState)
	Reply(matchID string, p engine.ParticipantID, r Reply)
}

// Summary is a point-in-time copy of a match.
type Summary struct {
	ID           string           `json:"id"`
	Phase        Phase            `json:"phase"`
	State        engine.GameState `json:"state"`
	Moves        int              `json:"moves"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActivity time.Time        `json:"last_activity"`
}

type entry struct {
	mu    sync.Mutex
	match *Match
}

// Manager handles match lifecycle. Each match has its own lock, so events
// for different matches proceed in parallel while events for the same
// match are applied one at a time.
type Manager struct {
	opts       Options
	maxMatches int
	notifier   Notifier

	matches map[string]*entry
	mu      sync.RWMutex
}

// NewManager creates a match manager. Every match it creates uses opts.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:    opts,
		matches: make(map[string]*entry),
	}
}

// SetMaxMatches caps the number of live matches. Zero means no limit.
func (m *Manager) SetMaxMatches(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxMatches = n
}

// AttachNotifier wires the observer channel. It should be called before
// the first Dispatch.
func (m *Manager) AttachNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// Create creates a new match with the given ID, or a generated one when id
// is empty. IDs are case-insensitive.
func (m *Manager) Create(id string) (Summary, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id != "" && !matchIDPattern.MatchString(id) {
		return Summary{}, ErrInvalidMatchID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxMatches > 0 && len(m.matches) >= m.maxMatches {
		return Summary{}, ErrTooManyMatches
	}
	if id == "" {
		id = m.generateMatchID()
	}
	if _, exists := m.matches[id]; exists {
		return Summary{}, ErrMatchAlreadyExists
	}

	match := NewMatch(id, m.opts)
	m.matches[id] = &entry{match: match}

	obslog.L().Info("match_create", zap.String("match_id", id))
	return summarize(match), nil
}

// Get returns a summary of the match.
func (m *Manager) Get(id string) (Summary, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Summary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return summarize(e.match), nil
}

// Snapshot returns the current state of the match.
func (m *Manager) Snapshot(id string) (engine.GameState, error) {
	e, err := m.lookup(id)
	if err != nil {
		return engine.GameState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.State(), nil
}

// Observe calls fn with the current state while holding the match lock.
// Anything fn enqueues is ordered with the broadcasts of later events.
func (m *Manager) Observe(id string, fn func(engine.GameState)) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.match.State())
	return nil
}

// List returns summaries of all matches, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.matches))
	for _, e := range m.matches {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, summarize(e.match))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete removes a match.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.matches[key]; !exists {
		return ErrMatchNotFound
	}
	delete(m.matches, key)

	obslog.L().Info("match_delete", zap.String("match_id", key))
	return nil
}

// Dispatch applies ev for participant p to the match and hands the outcome
// to the notifier. The returned error reports only a missing match; a
// rejected event is reported in Outcome.Err.
func (m *Manager) Dispatch(id string, p engine.ParticipantID, ev Event) (Outcome, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Outcome{}, err
	}

	m.mu.RLock()
	notifier := m.notifier
	m.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.match.Handle(p, ev)
	if notifier != nil {
		if out.Snapshot != nil {
			notifier.Broadcast(e.match.ID, *out.Snapshot)
		}
		if out.Reply != nil {
			notifier.Reply(e.match.ID, p, *out.Reply)
		}
	}
	return out, nil
}

// Destinations returns legal destinations for the piece on from.
func (m *Manager) Destinations(id string, from board.Square) ([]board.Square, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.Destinations(from), nil
}

// History returns the committed moves of the match.
func (m *Manager) History(id string) ([]HistoryEntry, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.History(), nil
}

// CleanupExpired removes matches with no activity in the given duration.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, e := range m.matches {
		e.mu.Lock()
		expired := e.match.LastActivity.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(m.matches, id)
			removed++
		}
	}

	if removed > 0 {
		obslog.L().Info("match_cleanup", zap.Int("removed", removed), zap.Duration("max_age", maxAge))
	}
	return removed
}

// Count returns the number of live matches.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, exists := m.matches[strings.ToLower(id)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return e, nil
}

// generateMatchID returns a random 4-character hex ID not yet in use. The
// caller holds m.mu.
func (m *Manager) generateMatchID() string {
	bytes := make([]byte, 2)
	for {
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if _, exists := m.matches[id]; !exists {
			return id
		}
	}
}

func summarize(match *Match) Summary {
	return Summary{
		ID:           match.ID,
		Phase:        match.Phase(),
		State:        match.State(),
		Moves:        len(match.history),
		CreatedAt:    match.CreatedAt,
		LastActivity: match.LastActivity,
	}
}
