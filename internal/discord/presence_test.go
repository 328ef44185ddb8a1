package discord

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/trackpresence/internal/config"
	"github.com/jfmyers9/trackpresence/internal/music"
)

type fakeTransport struct {
	calls      []string
	activities []Activity

	connectErrs   []error
	updateErrs    []error
	reconnectErrs []error
	appID         string
}

// pop returns the next scripted error, or nil once the script runs out.
func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeTransport) Connect(appID string) error {
	f.calls = append(f.calls, "connect")
	f.appID = appID
	return pop(&f.connectErrs)
}

func (f *fakeTransport) SetActivity(a Activity) error {
	f.calls = append(f.calls, "set")
	if err := pop(&f.updateErrs); err != nil {
		return err
	}
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeTransport) ClearActivity() error {
	f.calls = append(f.calls, "clear")
	return pop(&f.updateErrs)
}

func (f *fakeTransport) Reconnect() error {
	f.calls = append(f.calls, "reconnect")
	return pop(&f.reconnectErrs)
}

func (f *fakeTransport) Close() error {
	f.calls = append(f.calls, "close")
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		PollPlaying:  time.Second,
		PollIdle:     10 * time.Second,
		ClientID:     "test-app",
		KnownPlayers: []string{"mpv"},
		Sources:      []string{"mpris"},
	}
}

// newTestSession returns a session whose sleeps are recorded instead of
// taken.
func newTestSession(fake *fakeTransport, cfg *config.Config) (*Session, *[]time.Duration) {
	var slept []time.Duration
	s := newSession(fake, cfg, zerolog.Nop())
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return s, &slept
}

func playing(title string) music.State {
	pos, length := 30*time.Second, 3*time.Minute
	return music.Playing(music.Track{
		Player:   "mpv",
		Title:    title,
		Artists:  []string{"Artist"},
		Position: &pos,
		Length:   &length,
	})
}

func TestOpen_RetriesUntilConnected(t *testing.T) {
	fake := &fakeTransport{connectErrs: []error{errors.New("no socket"), errors.New("no socket")}}
	cfg := testConfig()

	var slept []time.Duration
	s := newSession(fake, cfg, zerolog.Nop())
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if !slices.Equal(fake.calls, []string{"connect", "connect", "connect"}) {
		t.Errorf("calls = %v", fake.calls)
	}
	if len(slept) != 2 || slept[0] != cfg.PollIdle {
		t.Errorf("slept = %v, want two waits of %v", slept, cfg.PollIdle)
	}
	if fake.appID != "test-app" {
		t.Errorf("appID = %q, want test-app", fake.appID)
	}
}

func TestOpen_StopsOnContextCancel(t *testing.T) {
	fake := &fakeTransport{connectErrs: []error{errors.New("no socket")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, fake, testConfig(), zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestUpdate_SendsActivityForPlayingTrack(t *testing.T) {
	fake := &fakeTransport{}
	s, _ := newTestSession(fake, testConfig())

	if err := s.Update(playing("Song")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(fake.activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(fake.activities))
	}
	a := fake.activities[0]
	if a.Details != "Song" {
		t.Errorf("Details = %q, want Song", a.Details)
	}
	if a.Timestamps == nil || *a.Timestamps.Start != 1_700_000_000-30 {
		t.Errorf("Timestamps = %+v", a.Timestamps)
	}
}

func TestUpdate_ClearsWhenStopped(t *testing.T) {
	fake := &fakeTransport{}
	s, _ := newTestSession(fake, testConfig())

	if err := s.Update(music.Stopped()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !slices.Equal(fake.calls, []string{"clear"}) {
		t.Errorf("calls = %v, want [clear]", fake.calls)
	}
}

func TestUpdate_ClearsExcludedTrack(t *testing.T) {
	fake := &fakeTransport{}
	cfg := testConfig()
	cfg.ExcludedTitles = []string{"Secret"}
	s, _ := newTestSession(fake, cfg)

	if err := s.Update(playing("Secret")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !slices.Equal(fake.calls, []string{"clear"}) {
		t.Errorf("calls = %v, want [clear]", fake.calls)
	}
}

func TestUpdate_ReturnsTransportError(t *testing.T) {
	fake := &fakeTransport{updateErrs: []error{errors.New("broken pipe")}}
	s, _ := newTestSession(fake, testConfig())

	if err := s.Update(playing("Song")); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureUpdate_SucceedsWithoutReconnect(t *testing.T) {
	fake := &fakeTransport{}
	s, slept := newTestSession(fake, testConfig())

	if err := s.EnsureUpdate(context.Background(), playing("Song")); err != nil {
		t.Fatalf("EnsureUpdate: %v", err)
	}
	if !slices.Equal(fake.calls, []string{"set"}) {
		t.Errorf("calls = %v, want [set]", fake.calls)
	}
	if len(*slept) != 0 {
		t.Errorf("unexpected sleeps: %v", *slept)
	}
}

func TestEnsureUpdate_ReconnectsThenRetries(t *testing.T) {
	fake := &fakeTransport{
		updateErrs:    []error{errors.New("broken pipe")},
		reconnectErrs: []error{errors.New("no socket"), errors.New("no socket")},
	}
	cfg := testConfig()
	s, slept := newTestSession(fake, cfg)

	if err := s.EnsureUpdate(context.Background(), playing("Song")); err != nil {
		t.Fatalf("EnsureUpdate: %v", err)
	}

	want := []string{"set", "reconnect", "reconnect", "reconnect", "set"}
	if !slices.Equal(fake.calls, want) {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
	if len(*slept) != 2 {
		t.Errorf("expected 2 waits between reconnects, got %v", *slept)
	}
	for _, d := range *slept {
		if d != cfg.PollIdle {
			t.Errorf("waited %v, want %v", d, cfg.PollIdle)
		}
	}
	if len(fake.activities) != 1 {
		t.Errorf("expected the update to land once, got %d", len(fake.activities))
	}
}

func TestEnsureUpdate_StartsOverAfterRepeatedFailure(t *testing.T) {
	fake := &fakeTransport{
		updateErrs: []error{errors.New("broken pipe"), errors.New("broken pipe")},
	}
	s, _ := newTestSession(fake, testConfig())

	if err := s.EnsureUpdate(context.Background(), music.Stopped()); err != nil {
		t.Fatalf("EnsureUpdate: %v", err)
	}

	want := []string{"clear", "reconnect", "clear", "reconnect", "clear"}
	if !slices.Equal(fake.calls, want) {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
}

func TestEnsureUpdate_StopsOnContextCancel(t *testing.T) {
	fake := &fakeTransport{
		updateErrs:    []error{errors.New("broken pipe")},
		reconnectErrs: []error{errors.New("no socket")},
	}
	s, _ := newTestSession(fake, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	s.sleep = func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := s.EnsureUpdate(ctx, playing("Song"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestClose_ClearsThenCloses(t *testing.T) {
	fake := &fakeTransport{updateErrs: []error{errors.New("broken pipe")}}
	s, _ := newTestSession(fake, testConfig())

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !slices.Equal(fake.calls, []string{"clear", "close"}) {
		t.Errorf("calls = %v, want [clear close]", fake.calls)
	}
}

func TestWait_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait did not return promptly")
	}
}
