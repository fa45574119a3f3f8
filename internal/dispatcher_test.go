package internal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingScheduler captures scheduled redirects instead of running timers
type recordingScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	funcs  []func()
}

func (s *recordingScheduler) schedule(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.funcs = append(s.funcs, f)
}

func (s *recordingScheduler) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.funcs)
}

func (s *recordingScheduler) fire() {
	s.mu.Lock()
	funcs := append([]func(){}, s.funcs...)
	s.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

var ignoreTurnMeta = cmpopts.IgnoreFields(Turn{}, "ID", "Timestamp")

func TestDispatcher_SendSuccessBindsSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := &fakeAPI{}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{Message: "hi", SessionID: 42}, nil
	}
	gate := signedIn(t, api)
	store := NewStore(ModeDefault)
	d := NewDispatcher(api, gate, nil)

	res := d.Send(context.Background(), store, "hello")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.True(t, res.Bound)
	assert.Equal(t, "hi", res.Reply)
	assert.Equal(t, SessionID(42), store.ID())
	assert.Equal(t, StateIdle, store.State())

	want := []Turn{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleBot, Text: "hi"},
	}
	if diff := cmp.Diff(want, store.Current().Transcript, ignoreTurnMeta); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}

	reqs := api.requests()
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].SessionID)
	assert.Empty(t, reqs[0].ConversationHistory)
	assert.Equal(t, ModeDefault, reqs[0].Mode)
}

func TestDispatcher_SecondSendCarriesIDAndHistory(t *testing.T) {
	api := &fakeAPI{}
	replies := []string{"hi", "fine"}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		reply := replies[0]
		replies = replies[1:]
		return &ChatResponse{Message: reply, SessionID: 42}, nil
	}
	gate := signedIn(t, api)
	store := NewStore(ModeDefault)
	d := NewDispatcher(api, gate, nil)

	require.Equal(t, OutcomeSuccess, d.Send(context.Background(), store, "hello").Outcome)
	res := d.Send(context.Background(), store, "how are you")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.False(t, res.Bound, "an already bound session is not rebound")

	reqs := api.requests()
	require.Len(t, reqs, 2)
	require.NotNil(t, reqs[1].SessionID)
	assert.Equal(t, SessionID(42), *reqs[1].SessionID)
	assert.Equal(t, []HistoryEntry{{UserMessage: "hello", BotResponse: "hi"}}, reqs[1].ConversationHistory)
	assert.Len(t, store.Current().Transcript, 4)
}

func TestDispatcher_BusyDropsSecondSend(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	api := &fakeAPI{}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		<-release
		return &ChatResponse{Message: "hi", SessionID: 1}, nil
	}
	gate := signedIn(t, api)
	store := NewStore(ModeDefault)
	d := NewDispatcher(api, gate, nil)

	done := make(chan Result)
	go func() { done <- d.Send(context.Background(), store, "first") }()

	require.Eventually(t, func() bool { return store.State() == StateSending }, time.Second, time.Millisecond)

	busy := d.Send(context.Background(), store, "second")
	assert.Equal(t, OutcomeBusy, busy.Outcome)
	assert.Zero(t, busy.UserTurn)

	close(release)
	first := <-done
	assert.Equal(t, OutcomeSuccess, first.Outcome)

	assert.Equal(t, 1, api.count("chat"))
	assert.Equal(t, StateIdle, store.State())
	transcript := store.Current().Transcript
	require.Len(t, transcript, 2)
	assert.Equal(t, "first", transcript[0].Text)
}

func TestDispatcher_DistinctSessionsSendConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var entered sync.WaitGroup
	entered.Add(2)
	release := make(chan struct{})
	api := &fakeAPI{}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		entered.Done()
		<-release
		return &ChatResponse{Message: "re: " + req.Message, SessionID: 7}, nil
	}
	gate := signedIn(t, api)
	d := NewDispatcher(api, gate, nil)
	a, b := NewStore(ModeDefault), NewStore(ModeAffinity)

	results := make(chan Result, 2)
	go func() { results <- d.Send(context.Background(), a, "to a") }()
	go func() { results <- d.Send(context.Background(), b, "to b") }()

	// both requests are in flight at the same time
	entered.Wait()
	close(release)
	for i := 0; i < 2; i++ {
		assert.Equal(t, OutcomeSuccess, (<-results).Outcome)
	}

	assert.Equal(t, "re: to a", a.Current().Transcript[1].Text)
	assert.Equal(t, "re: to b", b.Current().Transcript[1].Text)
}

func TestDispatcher_UnauthorizedSchedulesOneRedirect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := &fakeAPI{}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		return nil, unauthorized()
	}
	gate := signedIn(t, api)
	sched := &recordingScheduler{}
	navigated := 0
	d := NewDispatcher(api, gate, NavigatorFunc(func() { navigated++ }), WithScheduler(sched.schedule))
	store := NewStore(ModeDefault)

	res := d.Send(context.Background(), store, "hello")
	require.Equal(t, OutcomeAuthFailure, res.Outcome)
	assert.True(t, IsAuthError(res.Err))
	assert.Equal(t, LoginRequiredNotice, res.Reply)

	transcript := store.Current().Transcript
	require.Len(t, transcript, 2)
	assert.Equal(t, "hello", transcript[0].Text)
	assert.Equal(t, LoginRequiredNotice, transcript[1].Text)
	assert.Equal(t, NoSession, store.ID())
	assert.Equal(t, StateIdle, store.State())
	assert.Nil(t, gate.Current(), "a rejected credential forgets the identity")

	require.Equal(t, 1, sched.scheduled())
	assert.Equal(t, DefaultRedirectDelay, sched.delays[0])
	assert.Zero(t, navigated, "navigation waits for the delay")
	sched.fire()
	assert.Equal(t, 1, navigated)
	assert.Equal(t, 1, d.Redirects())
}

func TestDispatcher_BlockedGateSkipsNetwork(t *testing.T) {
	api := &fakeAPI{}
	gate := anonymous(t, api)
	sched := &recordingScheduler{}
	d := NewDispatcher(api, gate, NavigatorFunc(func() {}), WithScheduler(sched.schedule), WithRedirectDelay(time.Second))
	store := NewStore(ModeDefault)

	res := d.Send(context.Background(), store, "hello")
	assert.Equal(t, OutcomeAuthFailure, res.Outcome)
	assert.Zero(t, api.count("chat"))
	assert.Equal(t, LoginRequiredNotice, store.Current().Transcript[1].Text)
	require.Equal(t, 1, sched.scheduled())
	assert.Equal(t, time.Second, sched.delays[0])
}

func TestDispatcher_FailureAppendsDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server message",
			err:  &APIError{Method: http.MethodPost, Path: "/api/chat", Status: 500, Message: "model overloaded"},
			want: FailureNotice + " (model overloaded)",
		},
		{
			name: "bare status",
			err:  &APIError{Method: http.MethodPost, Path: "/api/chat", Status: 502},
			want: FailureNotice + " (HTTP 502)",
		},
		{
			name: "transport error",
			err:  errors.New("connection refused"),
			want: FailureNotice + " (connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
				return nil, tt.err
			}
			gate := signedIn(t, api)
			sched := &recordingScheduler{}
			d := NewDispatcher(api, gate, NavigatorFunc(func() {}), WithScheduler(sched.schedule))
			store := NewStore(ModeDefault)

			res := d.Send(context.Background(), store, "hello")
			assert.Equal(t, OutcomeFailure, res.Outcome)
			assert.Equal(t, tt.want, res.Reply)
			assert.Equal(t, tt.want, store.Current().Transcript[1].Text)
			assert.Equal(t, StateIdle, store.State())
			assert.Zero(t, sched.scheduled(), "generic failures never redirect")
			assert.Equal(t, 1, api.count("chat"), "failures are not retried")
		})
	}
}

func TestDispatcher_IgnoresBlankText(t *testing.T) {
	api := &fakeAPI{}
	d := NewDispatcher(api, signedIn(t, api), nil)
	store := NewStore(ModeDefault)

	for _, text := range []string{"", "   ", "\n\t"} {
		res := d.Send(context.Background(), store, text)
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.ErrorIs(t, res.Err, ErrEmptyMessage)
	}
	assert.Empty(t, store.Current().Transcript)
	assert.Zero(t, api.count("chat"))
}

func TestDispatcher_ModeReadAtSendTime(t *testing.T) {
	api := &fakeAPI{}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{Message: "ok", SessionID: 3}, nil
	}
	d := NewDispatcher(api, signedIn(t, api), nil)
	store := NewStore(ModeDefault)

	d.Send(context.Background(), store, "one")
	store.SetMode(ModeContrarian)
	d.Send(context.Background(), store, "two")

	reqs := api.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, ModeDefault, reqs[0].Mode)
	assert.Equal(t, ModeContrarian, reqs[1].Mode)
	assert.Equal(t, ModeContrarian, store.Current().Mode)
}

func TestDispatcher_DetachedStoreDropsLateReply(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	api := &fakeAPI{}
	api.chat = func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		<-release
		return &ChatResponse{Message: "late", SessionID: 9}, nil
	}
	d := NewDispatcher(api, signedIn(t, api), nil)
	store := NewStore(ModeDefault)

	done := make(chan Result)
	go func() { done <- d.Send(context.Background(), store, "hello") }()
	require.Eventually(t, func() bool { return api.count("chat") == 1 }, time.Second, time.Millisecond)

	store.Detach()
	close(release)
	res := <-done

	assert.Zero(t, res.BotTurn)
	assert.False(t, res.Bound)
	assert.Equal(t, NoSession, store.ID())
	transcript := store.Current().Transcript
	require.Len(t, transcript, 1)
	assert.Equal(t, "hello", transcript[0].Text)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "auth-failure", OutcomeAuthFailure.String())
	assert.Equal(t, "busy", OutcomeBusy.String())
	assert.Equal(t, "outcome(42)", Outcome(42).String())
}
