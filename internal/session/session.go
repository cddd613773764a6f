package session

import (
	"context"
	"errors"
	"time"

	"bodyshape-coach/internal/profile"
)

// State is the position of a user in the conversation.
type State string

const (
	StateAwaitingName          State = "awaiting_name"
	StateAwaitingAge           State = "awaiting_age"
	StateAwaitingWeight        State = "awaiting_weight"
	StateAwaitingHeight        State = "awaiting_height"
	StateAwaitingGoals         State = "awaiting_goals"
	StateAwaitingGender        State = "awaiting_gender"
	StateAwaitingActivityLevel State = "awaiting_activity_level"
	StateAwaitingDietaryPrefs  State = "awaiting_dietary_prefs"
	StateReady                 State = "ready"
	StateInChat                State = "in_chat"
)

var fieldStates = map[profile.Field]State{
	profile.FieldName:          StateAwaitingName,
	profile.FieldAge:           StateAwaitingAge,
	profile.FieldWeight:        StateAwaitingWeight,
	profile.FieldHeight:        StateAwaitingHeight,
	profile.FieldGoals:         StateAwaitingGoals,
	profile.FieldGender:        StateAwaitingGender,
	profile.FieldActivityLevel: StateAwaitingActivityLevel,
	profile.FieldDietaryPrefs:  StateAwaitingDietaryPrefs,
}

// AwaitingState returns the state that waits for an answer to f.
func AwaitingState(f profile.Field) State {
	return fieldStates[f]
}

// Field returns the profile field the state waits for, if any.
func (s State) Field() (profile.Field, bool) {
	for f, st := range fieldStates {
		if st == s {
			return f, true
		}
	}
	return "", false
}

// Complete reports whether onboarding is finished.
func (s State) Complete() bool {
	return s == StateReady || s == StateInChat
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, awaiting := s.Field()
	return awaiting || s.Complete()
}

// Session is the conversation state of one user.
type Session struct {
	UserID       int64
	State        State
	Profile      profile.Profile
	LastActivity time.Time
}

// New starts a session at the first onboarding question.
func New(userID int64, first profile.Field, now time.Time) Session {
	return Session{
		UserID:       userID,
		State:        AwaitingState(first),
		LastActivity: now,
	}
}

// ErrNotFound is returned by Store.Get for unknown users.
var ErrNotFound = errors.New("session not found")

// Store keeps sessions keyed by user id. Implementations must be safe for
// concurrent use. Get returns a copy; changes are persisted with Set.
type Store interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Set(ctx context.Context, s Session) error
	Delete(ctx context.Context, userID int64) error
	// Sweep removes sessions whose LastActivity is before cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
