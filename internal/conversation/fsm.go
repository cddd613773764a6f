package conversation

import (
	"bodyshape-coach/internal/advice"
	"bodyshape-coach/internal/profile"
	"bodyshape-coach/internal/session"
)

type phase int

const (
	phaseNone phase = iota
	phaseOnboarding
	phaseReady
	phaseInChat
	phaseCount
)

func (p phase) String() string {
	switch p {
	case phaseNone:
		return "none"
	case phaseOnboarding:
		return "onboarding"
	case phaseReady:
		return "ready"
	case phaseInChat:
		return "in_chat"
	}
	return "unknown"
}

type inputClass int

const (
	inputQuickReply inputClass = iota
	inputText
	inputClassCount
)

type action func(m *Machine, t *turn) []Reply

// transitions covers every (phase, input) pair. Commands are handled before
// the table is consulted.
var transitions = [phaseCount][inputClassCount]action{
	phaseNone: {
		inputQuickReply: (*Machine).greetAndStart,
		inputText:       (*Machine).startOnboarding,
	},
	phaseOnboarding: {
		inputQuickReply: (*Machine).quickReply,
		inputText:       (*Machine).answerField,
	},
	phaseReady: {
		inputQuickReply: (*Machine).quickReply,
		inputText:       (*Machine).chat,
	},
	phaseInChat: {
		inputQuickReply: (*Machine).quickReply,
		inputText:       (*Machine).chat,
	},
}

func phaseOf(t *turn) phase {
	switch {
	case !t.found:
		return phaseNone
	case t.sess.State == session.StateReady:
		return phaseReady
	case t.sess.State == session.StateInChat:
		return phaseInChat
	default:
		return phaseOnboarding
	}
}

// greetAndStart answers a greeting from an unknown user and opens the
// questionnaire without consuming the greeting as an answer.
func (m *Machine) greetAndStart(t *turn) []Reply {
	canned, _ := m.cat.QuickReply(t.text)
	m.restart(t)
	return m.save(t, []Reply{{Text: canned, Markdown: true}, {Text: m.question(m.seq.First())}})
}

func (m *Machine) startOnboarding(t *turn) []Reply {
	m.restart(t)
	return m.save(t, m.plain(m.cat.Text("intro"), m.question(m.seq.First())))
}

func (m *Machine) quickReply(t *turn) []Reply {
	canned, _ := m.cat.QuickReply(t.text)
	return m.save(t, []Reply{{Text: canned, Markdown: true}})
}

func (m *Machine) answerField(t *turn) []Reply {
	field, ok := t.sess.State.Field()
	if !ok {
		m.log.Errorw("onboarding state without field", "user_id", t.userID, "state", t.sess.State)
		m.restart(t)
		return m.save(t, m.plain(m.cat.Text("intro"), m.question(m.seq.First())))
	}

	v, err := m.seq.Validate(field, t.text)
	if err != nil && !profile.IsValidationError(err) {
		m.log.Errorw("answer for unknown field, restarting onboarding", "user_id", t.userID, "state", t.sess.State, "error", err)
		m.restart(t)
		return m.save(t, m.plain(m.cat.Text("intro"), m.question(m.seq.First())))
	}
	if err != nil {
		m.log.Debugw("invalid answer", "user_id", t.userID, "state", t.sess.State, "error", err)
		return m.save(t, m.plain(m.cat.Text("invalid."+string(field))))
	}
	t.sess.Profile.Set(field, v)

	ack := ""
	if key := "ack." + string(field); m.cat.Has(key) {
		ack = m.render(key, t.sess.Profile) + "\n\n"
	}

	next, more := m.seq.Next(field)
	if more {
		t.sess.State = session.AwaitingState(next)
		return m.save(t, m.plain(ack+m.question(next)))
	}

	t.sess.State = session.StateReady
	m.log.Infow("profile complete", "user_id", t.userID, "goals", t.sess.Profile.Goals)
	return m.save(t, m.markdown(m.render("summary", t.sess.Profile), m.cat.Text("profile_complete")))
}

func (m *Machine) chat(t *turn) []Reply {
	t.sess.State = session.StateInChat
	p := t.sess.Profile
	a := m.advisor.Resolve(t.ctx, advice.Request{UserID: t.userID, Profile: &p, Text: t.text})
	return m.save(t, []Reply{answerReply(a)})
}
