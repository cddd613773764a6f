package advice

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodyshape-coach/internal/llm"
	"bodyshape-coach/internal/locale"
	"bodyshape-coach/internal/profile"
	"bodyshape-coach/internal/storage"
)

type fakeLLM struct {
	resp  llm.Response
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.calls = append(f.calls, msgs)
	return f.resp, f.err
}

type memRecorder struct{ events []storage.Event }

func (m *memRecorder) AppendInteraction(ev storage.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memRecorder) LoadInteractions() ([]storage.Event, error) { return m.events, nil }

func alex(goals string) *profile.Profile {
	return &profile.Profile{Name: "Alex", Age: 30, Weight: 80, Height: 180, Goals: goals}
}

func newResolver(t *testing.T, client llm.Client, opts Options) *Resolver {
	t.Helper()
	cat, err := locale.Load("en")
	require.NoError(t, err)
	return NewResolver(cat, client, opts)
}

func TestResolve_LocalTemplates(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "should not be used"}}
	rec := &memRecorder{}
	r := newResolver(t, fl, Options{Recorder: rec})
	ctx := context.Background()

	a := r.Resolve(ctx, Request{UserID: 1, Profile: alex("muscle gain"), Text: "Any WORKOUT ideas?"})
	assert.Equal(t, storage.SourceLocal, a.Source)
	assert.Contains(t, a.Text, "Muscle Gain Workout Plan")

	a = r.Resolve(ctx, Request{UserID: 1, Profile: alex("muscle gain"), Text: "what should I eat"})
	assert.Equal(t, storage.SourceLocal, a.Source)
	assert.Contains(t, a.Text, "Muscle Gain Nutrition Plan")
	assert.Contains(t, a.Text, "128g")

	a = r.Resolve(ctx, Request{UserID: 1, Profile: alex("toning"), Text: "diet please"})
	assert.Contains(t, a.Text, "General Health Nutrition Plan")

	assert.Empty(t, fl.calls)
	require.Len(t, rec.events, 3)
	assert.Equal(t, string(KindWorkout), rec.events[0].Kind)
	assert.Equal(t, string(KindNutrition), rec.events[1].Kind)
}

func TestResolve_Backend(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "Sleep 8 hours."}}
	rec := &memRecorder{}
	r := newResolver(t, fl, Options{Recorder: rec})

	a := r.Resolve(context.Background(), Request{UserID: 7, Profile: alex("muscle gain"), Text: "how do I sleep better?"})
	assert.Equal(t, Answer{Text: "Sleep 8 hours.", Source: storage.SourceLLM}, a)

	require.Len(t, fl.calls, 1)
	msgs := fl.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	for _, want := range []string{"Alex", "30 years old", "180cm", "80kg", "muscle gain"} {
		assert.Contains(t, msgs[0].Content, want)
	}
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "how do I sleep better?"}, msgs[1])

	require.Len(t, rec.events, 1)
	assert.Equal(t, storage.SourceLLM, rec.events[0].Source)
	assert.Empty(t, rec.events[0].Error)
}

func TestResolve_AnonymousUsesGenericInstruction(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "Walk daily."}}
	r := newResolver(t, fl, Options{})

	a := r.Resolve(context.Background(), Request{UserID: 2, Text: "best workout for legs?"})
	assert.Equal(t, storage.SourceLLM, a.Source, "keyword routing needs a profile")
	require.Len(t, fl.calls, 1)
	assert.NotContains(t, fl.calls[0][0].Content, "talking to")
}

func TestResolve_Fallbacks(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("503 from upstream")

	cases := map[string]struct {
		client   llm.Client
		profile  *profile.Profile
		text     string
		contains string
	}{
		"error with goal":        {&fakeLLM{err: boom}, alex("muscle gain"), "motivation?", `goal to "muscle gain"`},
		"weight loss question":   {&fakeLLM{err: boom}, alex("Weight loss"), "how to lose weight fast", "For weight loss at 30"},
		"weight but other goal":  {&fakeLLM{err: boom}, alex("muscle gain"), "gain weight?", `goal to "muscle gain"`},
		"empty completion":       {&fakeLLM{resp: llm.Response{Content: "  "}}, alex("toning"), "hi coach", `goal to "toning"`},
		"no backend":             {nil, alex("toning"), "hi coach", `goal to "toning"`},
		"no backend, no profile": {nil, nil, "hi coach", "/start"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &memRecorder{}
			r := newResolver(t, tc.client, Options{Recorder: rec})
			a := r.Resolve(ctx, Request{UserID: 3, Profile: tc.profile, Text: tc.text})
			assert.Equal(t, storage.SourceFallback, a.Source)
			assert.Contains(t, a.Text, tc.contains)
			assert.NotContains(t, a.Text, "503")
			require.Len(t, rec.events, 1)
			assert.NotEmpty(t, rec.events[0].Error)
		})
	}
}

func TestResolve_RateLimited(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	now := time.Unix(1_700_000_000, 0)
	r := newResolver(t, fl, Options{RatePerMinute: 1, Burst: 1, Now: func() time.Time { return now }})
	ctx := context.Background()
	req := Request{UserID: 9, Profile: alex("toning"), Text: "hello coach"}

	assert.Equal(t, storage.SourceLLM, r.Resolve(ctx, req).Source)
	assert.Equal(t, storage.SourceFallback, r.Resolve(ctx, req).Source)

	other := req
	other.UserID = 10
	assert.Equal(t, storage.SourceLLM, r.Resolve(ctx, other).Source, "limits are per user")

	now = now.Add(time.Minute)
	assert.Equal(t, storage.SourceLLM, r.Resolve(ctx, req).Source)
	assert.Len(t, fl.calls, 3)
}

func TestResolve_KeywordsMatchWholeWords(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "Stretch daily."}}
	r := newResolver(t, fl, Options{})
	ctx := context.Background()

	for _, text := range []string{
		"Create a stretching routine for my back",
		"Is sweating a lot normal?",
		"great, how do I improve sleep?",
		"any dietary supplements worth it?",
	} {
		a := r.Resolve(ctx, Request{UserID: 1, Profile: alex("muscle gain"), Text: text})
		assert.Equal(t, storage.SourceLLM, a.Source, text)
		assert.Equal(t, "Stretch daily.", a.Text, text)
	}
	assert.Len(t, fl.calls, 4)

	a := r.Resolve(ctx, Request{UserID: 1, Profile: alex("muscle gain"), Text: "Eating late, ok?"})
	assert.Equal(t, storage.SourceLocal, a.Source)
	a = r.Resolve(ctx, Request{UserID: 1, Profile: alex("muscle gain"), Text: "leg-exercises please"})
	assert.Equal(t, storage.SourceLocal, a.Source)
	assert.Contains(t, a.Text, "Muscle Gain Workout Plan")
}

func TestPruneLimits(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	now := time.Unix(1_700_000_000, 0)
	r := newResolver(t, fl, Options{RatePerMinute: 1, Burst: 1, Now: func() time.Time { return now }})
	ctx := context.Background()

	r.Resolve(ctx, Request{UserID: 1, Text: "hello"})
	now = now.Add(30 * time.Second)
	r.Resolve(ctx, Request{UserID: 2, Text: "hello"})
	require.Equal(t, 2, r.limits.len())

	now = now.Add(40 * time.Second)
	require.NoError(t, r.PruneLimits(ctx))
	assert.Equal(t, 1, r.limits.len(), "user 1 refilled, user 2 still draining")

	now = now.Add(time.Minute)
	require.NoError(t, r.PruneLimits(ctx))
	assert.Equal(t, 0, r.limits.len())

	assert.Equal(t, storage.SourceLLM, r.Resolve(ctx, Request{UserID: 1, Text: "hello"}).Source)
	assert.Len(t, fl.calls, 3)
}

func TestPruneLimits_Unlimited(t *testing.T) {
	r := newResolver(t, &fakeLLM{resp: llm.Response{Content: "ok"}}, Options{})
	r.Resolve(context.Background(), Request{UserID: 1, Text: "hello"})
	require.NoError(t, r.PruneLimits(context.Background()))
	assert.Equal(t, 0, r.limits.len())
}

func TestWorkoutAndNutrition_Focus(t *testing.T) {
	r := newResolver(t, nil, Options{})
	p := *alex("muscle gain")

	assert.Contains(t, r.Workout(p, "").Text, "Muscle Gain Workout Plan")
	assert.Contains(t, r.Workout(p, "weight loss").Text, "Weight Loss Workout Plan")
	assert.Contains(t, r.Workout(p, "definition").Text, "Toning & Definition Plan")
	assert.Contains(t, r.Workout(p, "stay healthy").Text, "General Fitness Plan")

	n := r.Nutrition(p, "weight loss")
	assert.Equal(t, storage.SourceLocal, n.Source)
	assert.Contains(t, n.Text, "Weight Loss Nutrition Plan")
	assert.Contains(t, n.Text, "2400")
}

func TestWeeklyPlan(t *testing.T) {
	p := *alex("muscle gain")

	fl := &fakeLLM{resp: llm.Response{Content: "Day 1: lift."}}
	r := newResolver(t, fl, Options{})
	a := r.WeeklyPlan(context.Background(), 4, p)
	assert.Equal(t, Answer{Text: "Day 1: lift.", Source: storage.SourceLLM}, a)
	require.Len(t, fl.calls, 1)
	assert.Contains(t, fl.calls[0][1].Content, "7-day fitness plan for Alex")

	r = newResolver(t, &fakeLLM{err: errors.New("timeout")}, Options{})
	a = r.WeeklyPlan(context.Background(), 4, p)
	assert.Equal(t, storage.SourceFallback, a.Source)
	assert.Contains(t, a.Text, "Your Weekly Plan, Alex")
}

func TestTip(t *testing.T) {
	cat, err := locale.Load("en")
	require.NoError(t, err)
	r := NewResolver(cat, nil, Options{Rand: rand.New(rand.NewSource(1))})
	for i := 0; i < 20; i++ {
		assert.Contains(t, cat.Tips(), r.Tip())
	}
}
