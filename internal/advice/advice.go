// Package advice answers fitness questions, either from local templates or
// through a text-completion backend with a local fallback.
package advice

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"bodyshape-coach/internal/llm"
	"bodyshape-coach/internal/locale"
	"bodyshape-coach/internal/logger"
	"bodyshape-coach/internal/profile"
	"bodyshape-coach/internal/storage"
)

// ErrUnavailable means no backend call was made: none is configured or the
// user is over the rate limit.
var ErrUnavailable = errors.New("advice backend unavailable")

// Kind labels recorded interactions.
type Kind string

const (
	KindAsk       Kind = "ask"
	KindWorkout   Kind = "workout"
	KindNutrition Kind = "nutrition"
	KindWeekly    Kind = "weekly"
)

// Request is a free-text question. Profile is nil for users who have not
// finished onboarding.
type Request struct {
	UserID  int64
	Profile *profile.Profile
	Text    string
}

// Answer is the reply text and where it came from.
type Answer struct {
	Text   string
	Source storage.Source
}

// Options configures a Resolver. Zero values are usable.
type Options struct {
	// RatePerMinute limits backend calls per user. Zero disables the limit.
	RatePerMinute float64
	Burst         int
	Recorder      storage.Recorder
	Log           *zap.SugaredLogger
	Now           func() time.Time
	Rand          *rand.Rand
}

// Resolver picks between local templates and the backend for each request.
// It is safe for concurrent use.
type Resolver struct {
	cat    *locale.Catalog
	client llm.Client
	limits *limiter
	rec    storage.Recorder
	log    *zap.SugaredLogger
	now    func() time.Time
	rnd    *lockedRand
}

// NewResolver builds a Resolver. client may be nil, in which case every
// non-local request gets the fallback text.
func NewResolver(cat *locale.Catalog, client llm.Client, opts Options) *Resolver {
	r := &Resolver{
		cat:    cat,
		client: client,
		limits: newLimiter(opts.RatePerMinute, opts.Burst),
		rec:    opts.Recorder,
		log:    logger.OrNop(opts.Log),
		now:    opts.Now,
		rnd:    newLockedRand(opts.Rand),
	}
	if r.rec == nil {
		r.rec = storage.Discard{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

var (
	workoutKeywords   = []string{"workout", "workouts", "exercise", "exercises"}
	nutritionKeywords = []string{"diet", "diets", "nutrition", "eat", "eating"}
)

// words splits lower-cased text into letter runs.
func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		set[w] = true
	}
	return set
}

func containsAny(set map[string]bool, keywords []string) bool {
	for _, k := range keywords {
		if set[k] {
			return true
		}
	}
	return false
}

// Resolve never fails: backend problems are logged and replaced by a
// fallback answer.
func (r *Resolver) Resolve(ctx context.Context, req Request) Answer {
	lower := strings.ToLower(req.Text)

	if req.Profile != nil {
		set := words(lower)
		switch {
		case containsAny(set, workoutKeywords):
			return r.record(req, KindWorkout, r.Workout(*req.Profile, ""), nil)
		case containsAny(set, nutritionKeywords):
			return r.record(req, KindNutrition, r.Nutrition(*req.Profile, ""), nil)
		}
	}

	system, err := r.systemPrompt(req.Profile)
	if err == nil {
		var text string
		text, err = r.generate(ctx, req.UserID, system, req.Text)
		if err == nil {
			return r.record(req, KindAsk, Answer{Text: text, Source: storage.SourceLLM}, nil)
		}
	}
	r.log.Warnw("advice backend failed, using fallback", "user_id", req.UserID, "error", err)
	return r.record(req, KindAsk, Answer{Text: r.fallback(req.Profile, lower), Source: storage.SourceFallback}, err)
}

// Workout returns the local workout template. A non-empty focus replaces
// the profile goal when choosing it.
func (r *Resolver) Workout(p profile.Profile, focus string) Answer {
	goal := profile.ClassifyGoal(p.Goals)
	if strings.TrimSpace(focus) != "" {
		goal = profile.ClassifyGoal(focus)
	}
	return Answer{Text: r.render("workout."+string(goal), p), Source: storage.SourceLocal}
}

// Nutrition returns the local nutrition template. Toning and general
// fitness share the general health plan.
func (r *Resolver) Nutrition(p profile.Profile, focus string) Answer {
	goal := profile.ClassifyGoal(p.Goals)
	if strings.TrimSpace(focus) != "" {
		goal = profile.ClassifyGoal(focus)
	}
	key := "nutrition.general_health"
	switch goal {
	case profile.GoalWeightLoss, profile.GoalMuscleGain:
		key = "nutrition." + string(goal)
	}
	return Answer{Text: r.render(key, p), Source: storage.SourceLocal}
}

// WeeklyPlan asks the backend for a seven day plan and falls back to the
// local weekly template.
func (r *Resolver) WeeklyPlan(ctx context.Context, userID int64, p profile.Profile) Answer {
	req := Request{UserID: userID, Profile: &p}
	prompt, err := r.cat.Render("prompt.weekly", profile.NewView(p))
	if err == nil {
		req.Text = prompt
		var system, text string
		system, err = r.systemPrompt(&p)
		if err == nil {
			text, err = r.generate(ctx, userID, system, prompt)
		}
		if err == nil {
			return r.record(req, KindWeekly, Answer{Text: text, Source: storage.SourceLLM}, nil)
		}
	}
	r.log.Warnw("weekly plan backend failed, using local plan", "user_id", userID, "error", err)
	return r.record(req, KindWeekly, Answer{Text: r.render("weekly.local", p), Source: storage.SourceFallback}, err)
}

// Tip returns a random tip.
func (r *Resolver) Tip() string {
	tips := r.cat.Tips()
	return tips[r.rnd.Intn(len(tips))]
}

// PruneLimits drops rate-limit buckets that have refilled completely. It
// matches scheduler.Job so it can run on the sweep schedule.
func (r *Resolver) PruneLimits(ctx context.Context) error {
	if n := r.limits.prune(r.now()); n > 0 {
		r.log.Debugw("pruned idle rate limiters", "removed", n)
	}
	return nil
}

func (r *Resolver) generate(ctx context.Context, userID int64, system, user string) (string, error) {
	if r.client == nil {
		return "", ErrUnavailable
	}
	if !r.limits.allow(userID, r.now()) {
		return "", ErrUnavailable
	}
	resp, err := r.client.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", llm.ErrEmptyResponse
	}
	r.log.Debugw("advice generated", "user_id", userID, "model", resp.Model, "tokens", resp.TotalTokens)
	return resp.Content, nil
}

func (r *Resolver) systemPrompt(p *profile.Profile) (string, error) {
	if p == nil {
		return r.cat.Render("system.generic", nil)
	}
	return r.cat.Render("system.personal", profile.NewView(*p))
}

func (r *Resolver) fallback(p *profile.Profile, lowerText string) string {
	if p == nil {
		return r.cat.Text("fallback.anonymous")
	}
	if strings.Contains(lowerText, "weight") && profile.ClassifyGoal(p.Goals) == profile.GoalWeightLoss {
		return r.render("fallback.weight_loss", *p)
	}
	return r.render("fallback.general", *p)
}

// render falls back to the plain key text when a template cannot run, so
// callers always have something to send.
func (r *Resolver) render(key string, p profile.Profile) string {
	s, err := r.cat.Render(key, profile.NewView(p))
	if err != nil {
		r.log.Errorw("render template", "key", key, "error", err)
		return r.cat.Text("error")
	}
	return s
}

func (r *Resolver) record(req Request, kind Kind, a Answer, cause error) Answer {
	ev := storage.Event{
		Timestamp: r.now().UTC(),
		UserID:    req.UserID,
		Kind:      string(kind),
		Request:   req.Text,
		Response:  a.Text,
		Source:    a.Source,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := r.rec.AppendInteraction(ev); err != nil {
		r.log.Warnw("record advice", "user_id", req.UserID, "error", err)
	}
	return a
}
