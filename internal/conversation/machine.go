// Package conversation turns inbound chat text into replies. It owns the
// onboarding questionnaire and routes everything else to commands or to the
// advice resolver.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bodyshape-coach/internal/advice"
	"bodyshape-coach/internal/locale"
	"bodyshape-coach/internal/logger"
	"bodyshape-coach/internal/profile"
	"bodyshape-coach/internal/session"
	"bodyshape-coach/internal/storage"
)

// Message is one inbound text from a user.
type Message struct {
	UserID int64
	Text   string
}

// Reply is one outbound message. Markdown marks texts that carry emphasis
// markup.
type Reply struct {
	Text     string
	Markdown bool
}

// Advisor answers questions once the profile is known.
type Advisor interface {
	Resolve(ctx context.Context, req advice.Request) advice.Answer
	Workout(p profile.Profile, focus string) advice.Answer
	Nutrition(p profile.Profile, focus string) advice.Answer
	WeeklyPlan(ctx context.Context, userID int64, p profile.Profile) advice.Answer
	Tip() string
}

// DefaultTTL applies when Options.TTL is zero.
const DefaultTTL = 24 * time.Hour

// Options configures a Machine.
type Options struct {
	// TTL is the inactivity period after which a session is swept.
	TTL time.Duration
	Now func() time.Time
	Log *zap.SugaredLogger
}

// Machine drives onboarding and routes finished users to the Advisor.
// Turns for one user are serialized.
type Machine struct {
	store   session.Store
	seq     *profile.Sequencer
	cat     *locale.Catalog
	advisor Advisor
	ttl     time.Duration
	now     func() time.Time
	log     *zap.SugaredLogger
	locks   *userLocks
}

// NewMachine builds a Machine over store. A zero TTL means DefaultTTL.
func NewMachine(store session.Store, seq *profile.Sequencer, cat *locale.Catalog, advisor Advisor, opts Options) *Machine {
	m := &Machine{
		store:   store,
		seq:     seq,
		cat:     cat,
		advisor: advisor,
		ttl:     opts.TTL,
		now:     opts.Now,
		log:     logger.OrNop(opts.Log),
		locks:   newUserLocks(),
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// turn carries one message through the handlers.
type turn struct {
	ctx    context.Context
	userID int64
	text   string
	now    time.Time
	sess   session.Session
	found  bool
}

// Handle processes one message to completion. Messages of the same user are
// handled one at a time.
func (m *Machine) Handle(ctx context.Context, msg Message) []Reply {
	unlock := m.locks.lock(msg.UserID)
	defer unlock()

	now := m.now()
	if n, err := m.store.Sweep(ctx, now.Add(-m.ttl)); err != nil {
		m.log.Warnw("session sweep failed", "error", err)
	} else if n > 0 {
		m.log.Debugw("expired sessions removed", "count", n)
	}

	t := &turn{ctx: ctx, userID: msg.UserID, text: strings.TrimSpace(msg.Text), now: now}
	sess, err := m.store.Get(ctx, msg.UserID)
	switch {
	case err == nil:
		t.sess, t.found = sess, true
	case errors.Is(err, session.ErrNotFound):
	default:
		m.log.Errorw("load session", "user_id", msg.UserID, "error", err)
		return m.plain(m.cat.Text("error"))
	}

	if cmd, ok := ParseCommand(t.text); ok {
		m.log.Debugw("command", "user_id", msg.UserID, "command", cmd.Name)
		return m.dispatch(t, cmd)
	}

	class := inputText
	if _, ok := m.cat.QuickReply(t.text); ok {
		class = inputQuickReply
	}
	ph := phaseOf(t)
	m.log.Debugw("message", "user_id", msg.UserID, "phase", ph, "state", t.sess.State)
	return transitions[ph][class](m, t)
}

// save touches the session and stores it. A failed write is logged and
// turned into the generic error reply.
func (m *Machine) save(t *turn, replies []Reply) []Reply {
	t.sess.LastActivity = t.now
	if err := m.store.Set(t.ctx, t.sess); err != nil {
		m.log.Errorw("save session", "user_id", t.userID, "state", t.sess.State, "error", err)
		return m.plain(m.cat.Text("error"))
	}
	return replies
}

func (m *Machine) restart(t *turn) {
	t.sess = session.New(t.userID, m.seq.First(), t.now)
	t.found = true
}

func (m *Machine) question(f profile.Field) string {
	return m.cat.Text("question." + string(f))
}

func (m *Machine) render(key string, p profile.Profile) string {
	s, err := m.cat.Render(key, profile.NewView(p))
	if err != nil {
		m.log.Errorw("render template", "key", key, "error", err)
		return m.cat.Text("error")
	}
	return s
}

func (m *Machine) plain(texts ...string) []Reply {
	out := make([]Reply, 0, len(texts))
	for _, s := range texts {
		out = append(out, Reply{Text: s})
	}
	return out
}

func (m *Machine) markdown(texts ...string) []Reply {
	out := m.plain(texts...)
	for i := range out {
		out[i].Markdown = true
	}
	return out
}

func answerReply(a advice.Answer) Reply {
	return Reply{Text: a.Text, Markdown: a.Source != storage.SourceLLM}
}
