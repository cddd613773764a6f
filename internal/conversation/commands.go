package conversation

import (
	"bodyshape-coach/internal/advice"
	"bodyshape-coach/internal/profile"
)

type commandHandler func(m *Machine, t *turn, args string) []Reply

var commands = map[string]commandHandler{
	"start":     (*Machine).cmdStart,
	"update":    (*Machine).cmdUpdate,
	"profile":   (*Machine).cmdProfile,
	"help":      (*Machine).cmdHelp,
	"commands":  (*Machine).cmdHelp,
	"workout":   (*Machine).cmdWorkout,
	"nutrition": (*Machine).cmdNutrition,
	"plan":      (*Machine).cmdPlan,
	"tip":       (*Machine).cmdTip,
	"chat":      (*Machine).cmdChat,
	"ask":       (*Machine).cmdAsk,
}

// dispatch runs a command. Existing sessions are touched; only /start and
// /update change the questionnaire state.
func (m *Machine) dispatch(t *turn, cmd Command) []Reply {
	h, ok := commands[cmd.Name]
	if !ok {
		return m.touch(t, m.plain(m.cat.Text("unknown_command")))
	}
	return h(m, t, cmd.Args)
}

func (m *Machine) touch(t *turn, replies []Reply) []Reply {
	if !t.found {
		return replies
	}
	return m.save(t, replies)
}

// completeProfile returns the profile of a user who finished onboarding.
func (m *Machine) completeProfile(t *turn) (profile.Profile, bool) {
	if !t.found || !t.sess.State.Complete() {
		return profile.Profile{}, false
	}
	return t.sess.Profile, true
}

func (m *Machine) cmdStart(t *turn, _ string) []Reply {
	m.restart(t)
	return m.save(t, m.plain(m.cat.Text("intro"), m.question(m.seq.First())))
}

func (m *Machine) cmdUpdate(t *turn, _ string) []Reply {
	m.restart(t)
	return m.save(t, m.plain(m.cat.Text("update_intro"), m.question(m.seq.First())))
}

func (m *Machine) cmdProfile(t *turn, _ string) []Reply {
	p, ok := m.completeProfile(t)
	if !ok {
		return m.touch(t, m.plain(m.cat.Text("no_profile")))
	}
	return m.touch(t, m.markdown(m.render("summary", p)))
}

func (m *Machine) cmdHelp(t *turn, _ string) []Reply {
	return m.touch(t, m.markdown(m.cat.Text("help")))
}

func (m *Machine) cmdWorkout(t *turn, focus string) []Reply {
	p, ok := m.completeProfile(t)
	if !ok {
		return m.touch(t, m.plain(m.cat.Text("need_profile")))
	}
	return m.touch(t, []Reply{answerReply(m.advisor.Workout(p, focus))})
}

func (m *Machine) cmdNutrition(t *turn, focus string) []Reply {
	p, ok := m.completeProfile(t)
	if !ok {
		return m.touch(t, m.plain(m.cat.Text("need_profile")))
	}
	return m.touch(t, []Reply{answerReply(m.advisor.Nutrition(p, focus))})
}

func (m *Machine) cmdPlan(t *turn, _ string) []Reply {
	p, ok := m.completeProfile(t)
	if !ok {
		return m.touch(t, m.plain(m.cat.Text("need_profile")))
	}
	return m.touch(t, []Reply{answerReply(m.advisor.WeeklyPlan(t.ctx, t.userID, p))})
}

func (m *Machine) cmdTip(t *turn, _ string) []Reply {
	return m.touch(t, m.markdown(m.advisor.Tip()))
}

func (m *Machine) cmdChat(t *turn, text string) []Reply {
	p, ok := m.completeProfile(t)
	if !ok {
		return m.touch(t, m.plain(m.cat.Text("need_profile")))
	}
	if text == "" {
		return m.touch(t, m.plain(m.cat.Text("chat_prompt")))
	}
	a := m.advisor.Resolve(t.ctx, advice.Request{UserID: t.userID, Profile: &p, Text: text})
	return m.touch(t, []Reply{answerReply(a)})
}

// cmdAsk works without a profile; the answer is personalized when one exists.
func (m *Machine) cmdAsk(t *turn, question string) []Reply {
	if question == "" {
		return m.touch(t, m.plain(m.cat.Text("ask_prompt")))
	}
	req := advice.Request{UserID: t.userID, Text: question}
	if p, ok := m.completeProfile(t); ok {
		req.Profile = &p
	}
	return m.touch(t, []Reply{answerReply(m.advisor.Resolve(t.ctx, req))})
}
