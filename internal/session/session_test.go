package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/playback"
	"voicereader/agent/internal/speech"
	"voicereader/agent/internal/store"
)

type fakeRecognizer struct {
	mu      sync.Mutex
	starts  int
	stops   int
	failing bool
}

func (f *fakeRecognizer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("mic busy")
	}
	f.starts++
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeRecognizer) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func (f *fakeRecognizer) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

type fakeSynth struct {
	mu      sync.Mutex
	spoken  []speech.Utterance
	resumes int
}

func (f *fakeSynth) Speak(u speech.Utterance) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.mu.Unlock()
	return nil
}
func (f *fakeSynth) Cancel() {}
func (f *fakeSynth) Pause()  {}
func (f *fakeSynth) Resume() {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
}

func (f *fakeSynth) texts(kind speech.UtteranceKind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, u := range f.spoken {
		if u.Kind == kind {
			out = append(out, u.Text)
		}
	}
	return out
}

func (f *fakeSynth) lastID(kind speech.UtteranceKind) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.spoken) - 1; i >= 0; i-- {
		if f.spoken[i].Kind == kind {
			return f.spoken[i].ID
		}
	}
	return ""
}

type timer struct {
	at     time.Time
	fn     func()
	active bool
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{at: c.now.Add(d), fn: f, active: true}
	c.timers = append(c.timers, t)
	return func() {
		c.mu.Lock()
		t.active = false
		c.mu.Unlock()
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if t.active && !t.at.After(c.now) {
			t.active = false
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

type harness struct {
	s     *Session
	rec   *fakeRecognizer
	synth *fakeSynth
	clock *fakeClock

	mu        sync.Mutex
	published []Snapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h := &harness{rec: &fakeRecognizer{}, synth: &fakeSynth{}, clock: &fakeClock{now: time.Unix(1700000000, 0)}}
	s, err := New(cat, h.rec, h.synth, store.New(0), Options{
		ID:          "test",
		LockWindow:  2 * time.Second,
		FeedbackTTL: 5 * time.Second,
		Language:    "en-IN",
		Playback:    playback.Options{ContentRate: 0.9, SystemRate: 1.1},
		Clock:       h.clock,
		Publish: func(snap Snapshot) {
			h.mu.Lock()
			h.published = append(h.published, snap)
			h.mu.Unlock()
		},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.s = s

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) snap(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func (h *harness) post(t *testing.T, ev Event) {
	t.Helper()
	if err := h.s.Post(context.Background(), ev); err != nil {
		t.Fatalf("post: %v", err)
	}
}

func (h *harness) say(t *testing.T, text string) Snapshot {
	t.Helper()
	h.post(t, ResultReceived{Result: speech.ResultEvent{Results: []speech.Result{
		{Final: true, Alternatives: []speech.Alternative{{Transcript: text, Confidence: 0.9}}},
	}}})
	return h.snap(t)
}

func (h *harness) tap(t *testing.T, tp Tap) {
	t.Helper()
	if err := h.s.Tap(context.Background(), tp); err != nil {
		t.Fatalf("tap %+v: %v", tp, err)
	}
}

func (h *harness) listen(t *testing.T) {
	t.Helper()
	h.post(t, ClientHello{VoiceSupported: true, Voices: []speech.Voice{{Name: "Google UK", Lang: "en-GB"}, {Name: "Veena Female", Lang: "en-IN"}}})
	if err := h.s.SetListening(context.Background(), true); err != nil {
		t.Fatalf("listen: %v", err)
	}
}

func (h *harness) openChapter(t *testing.T, subjectID, chapterID string) {
	t.Helper()
	h.tap(t, Tap{Action: TapSelectSubject, SubjectID: subjectID})
	h.tap(t, Tap{Action: TapSelectChapter, ChapterID: chapterID})
}

func countEvents(s *Session, typ string) int {
	n := 0
	for _, e := range s.Events() {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestVoiceSelectsSubjectAndFlushes(t *testing.T) {
	h := newHarness(t)
	h.listen(t)

	snap := h.snap(t)
	if !snap.Listening || snap.Voice != "Veena Female" {
		t.Fatalf("after listen: %+v", snap)
	}
	if got := h.synth.texts(speech.KindSystem); len(got) != 1 || got[0] != "Microphone on. I am listening." {
		t.Fatalf("listening announcement: %v", got)
	}

	snap = h.say(t, "I want Science please")
	if snap.View != "subject" || snap.SubjectID != "s1" {
		t.Fatalf("expected subject s1: %+v", snap)
	}
	if snap.Feedback != "Opened Science (Class 10). Choose a chapter." {
		t.Fatalf("feedback %q", snap.Feedback)
	}
	if snap.Transcript != "i want science please" {
		t.Fatalf("transcript %q", snap.Transcript)
	}
	if _, stops := h.rec.counts(); stops != 1 {
		t.Fatalf("accepted command should flush the recognizer, stops=%d", stops)
	}

	h.post(t, RecognitionEnded{})
	h.snap(t)
	if starts, _ := h.rec.counts(); starts != 2 {
		t.Fatalf("end while listening should restart, starts=%d", starts)
	}
}

func TestDuplicateTranscriptSuppressed(t *testing.T) {
	h := newHarness(t)
	h.listen(t)
	h.openChapter(t, "s1", "c1")

	h.say(t, "next chapter")
	h.say(t, "next chapter")
	if snap := h.snap(t); snap.ChapterID != "c2" {
		t.Fatalf("duplicate must not advance twice: %+v", snap)
	}
	if n := countEvents(h.s, "command_accepted"); n != 3 {
		t.Fatalf("expected 2 taps + 1 voice command, got %d", n)
	}

	h.clock.Advance(2 * time.Second)
	if snap := h.say(t, "next chapter"); snap.ChapterID != "c3" {
		t.Fatalf("after the window the command applies again: %+v", snap)
	}
}

func TestListeningOffReleasesLock(t *testing.T) {
	h := newHarness(t)
	h.listen(t)
	h.openChapter(t, "s1", "c1")

	h.say(t, "next chapter")
	if err := h.s.SetListening(context.Background(), false); err != nil {
		t.Fatalf("listen off: %v", err)
	}
	if last, _ := h.s.lock.Held(); last != "" {
		t.Fatalf("lock survived listening off: %q", last)
	}
	if err := h.s.SetListening(context.Background(), true); err != nil {
		t.Fatalf("listen on: %v", err)
	}
	if snap := h.say(t, "next chapter"); snap.ChapterID != "c3" {
		t.Fatalf("repeat after re-arming should apply: %+v", snap)
	}
}

func TestUnmatchedDoesNotTakeLock(t *testing.T) {
	h := newHarness(t)
	h.listen(t)

	h.say(t, "banana")
	if last, _ := h.s.lock.Held(); last != "" {
		t.Fatalf("rejected phrase consumed the lock: %q", last)
	}
	if n := countEvents(h.s, "command_rejected"); n != 1 {
		t.Fatalf("expected one rejection, got %d", n)
	}
	if snap := h.snap(t); snap.View != "home" {
		t.Fatalf("rejection changed state: %+v", snap)
	}
}

func TestResultsIgnoredWhenNotListening(t *testing.T) {
	h := newHarness(t)
	if snap := h.say(t, "science"); snap.View != "home" || snap.Transcript != "" {
		t.Fatalf("result without client hello must be ignored: %+v", snap)
	}
	h.listen(t)
	if err := h.s.SetListening(context.Background(), false); err != nil {
		t.Fatalf("stop listening: %v", err)
	}
	if snap := h.say(t, "science"); snap.View != "home" {
		t.Fatalf("result while not listening must be ignored: %+v", snap)
	}
}

func TestStopWhilePlayingAnnounces(t *testing.T) {
	h := newHarness(t)
	h.listen(t)
	h.openChapter(t, "s1", "c1")
	h.tap(t, Tap{Action: TapPlay, Segment: "content"})
	if snap := h.snap(t); snap.Playback != "playing" || snap.Segment != "content" {
		t.Fatalf("expected playing content: %+v", snap)
	}

	snap := h.say(t, "stop")
	if snap.Playback != "stopped" || snap.Segment != "" {
		t.Fatalf("expected stopped: %+v", snap)
	}
	sys := h.synth.texts(speech.KindSystem)
	if sys[len(sys)-1] != "Audio stopped." {
		t.Fatalf("last system utterance %q", sys[len(sys)-1])
	}
}

func TestResumePausedContentWithoutRestart(t *testing.T) {
	h := newHarness(t)
	h.listen(t)
	h.openChapter(t, "s1", "c1")
	h.say(t, "read chapter")
	h.say(t, "pause")
	if snap := h.snap(t); snap.Playback != "paused" {
		t.Fatalf("expected paused: %+v", snap)
	}

	snap := h.say(t, "resume")
	if snap.Playback != "playing" || snap.Segment != "content" {
		t.Fatalf("expected playing content: %+v", snap)
	}
	if n := len(h.synth.texts(speech.KindContent)); n != 1 {
		t.Fatalf("resume restarted content: %d content utterances", n)
	}

	// resume while playing is rejected and leaves no feedback behind
	before := h.snap(t).Feedback
	h.clock.Advance(2 * time.Second)
	if snap := h.say(t, "continue"); snap.Feedback != before || snap.Playback != "playing" {
		t.Fatalf("resume while playing should be a no-op: %+v", snap)
	}
}

func TestAnnouncementDroppedWhilePlayingButShown(t *testing.T) {
	h := newHarness(t)
	h.listen(t)
	h.openChapter(t, "s2", "h1")

	snap := h.say(t, "read the summary")
	if snap.Segment != "summary" || snap.Feedback != "Reading summary." {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	for _, text := range h.synth.texts(speech.KindSystem) {
		if text == "Reading summary." {
			t.Fatalf("announcement spoken over content")
		}
	}
}

func TestLeavingChapterStopsPlayback(t *testing.T) {
	h := newHarness(t)
	h.openChapter(t, "s1", "c2")
	h.tap(t, Tap{Action: TapPlay, Segment: "qa"})
	h.tap(t, Tap{Action: TapBack})

	snap := h.snap(t)
	if snap.View != "subject" || snap.Playback != "stopped" {
		t.Fatalf("back from chapter should stop playback: %+v", snap)
	}
	sys := h.synth.texts(speech.KindSystem)
	if sys[len(sys)-1] != "Going back to chapters." {
		t.Fatalf("back announcement not spoken: %v", sys)
	}
}

func TestUtteranceEndStopsPlayback(t *testing.T) {
	h := newHarness(t)
	h.openChapter(t, "s3", "e1")
	h.tap(t, Tap{Action: TapPlay, Segment: "content"})
	h.post(t, UtteranceEnded{ID: h.synth.lastID(speech.KindContent)})
	if snap := h.snap(t); snap.Playback != "stopped" {
		t.Fatalf("completion should stop: %+v", snap)
	}
}

func TestFeedbackExpires(t *testing.T) {
	h := newHarness(t)
	h.tap(t, Tap{Action: TapSelectSubject, SubjectID: "s2"})
	if snap := h.snap(t); snap.Feedback == "" {
		t.Fatalf("feedback should be shown")
	}
	h.clock.Advance(5 * time.Second)
	if snap := h.snap(t); snap.Feedback != "" {
		t.Fatalf("feedback should expire: %q", snap.Feedback)
	}
}

func TestRecognitionErrors(t *testing.T) {
	h := newHarness(t)
	h.listen(t)

	h.post(t, RecognitionError{Code: speech.ErrNoSpeech})
	if snap := h.snap(t); !snap.Listening {
		t.Fatalf("no-speech must keep listening")
	}
	h.post(t, RecognitionError{Code: "not-allowed"})
	if snap := h.snap(t); snap.Listening {
		t.Fatalf("fatal error must turn listening off")
	}
	h.post(t, RecognitionEnded{})
	h.snap(t)
	if starts, _ := h.rec.counts(); starts != 1 {
		t.Fatalf("no restart after fatal error, starts=%d", starts)
	}
}

func TestRestartRetriesOnLoop(t *testing.T) {
	h := newHarness(t)
	h.listen(t)

	h.rec.setFailing(true)
	h.post(t, RecognitionEnded{})
	h.snap(t)
	h.rec.setFailing(false)

	h.clock.Advance(time.Second)
	h.snap(t)
	if starts, _ := h.rec.counts(); starts != 2 {
		t.Fatalf("retry should restart the recognizer, starts=%d", starts)
	}
	if snap := h.snap(t); !snap.Listening {
		t.Fatalf("still listening after successful retry")
	}
}

func TestStopListeningCancelsRetry(t *testing.T) {
	h := newHarness(t)
	h.listen(t)
	h.rec.setFailing(true)
	h.post(t, RecognitionEnded{})
	if err := h.s.Tap(context.Background(), Tap{Action: TapToggleListening}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	h.rec.setFailing(false)
	h.clock.Advance(5 * time.Second)
	h.snap(t)
	if starts, _ := h.rec.counts(); starts != 1 {
		t.Fatalf("cancelled retry restarted the recognizer, starts=%d", starts)
	}
}

func TestListeningRequiresVoiceSupport(t *testing.T) {
	h := newHarness(t)
	h.post(t, ClientHello{VoiceSupported: false})
	err := h.s.SetListening(context.Background(), true)
	if !errors.Is(err, ErrVoiceUnsupported) {
		t.Fatalf("expected ErrVoiceUnsupported, got %v", err)
	}
	// touch still works
	h.tap(t, Tap{Action: TapSelectSubject, SubjectID: "s3"})
	if snap := h.snap(t); snap.View != "subject" || snap.VoiceSupported {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTapErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.s.Tap(ctx, Tap{Action: TapSelectSubject, SubjectID: "nope"}); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := h.s.Tap(ctx, Tap{Action: TapPlay, Segment: "content"}); !errors.Is(err, ErrNoChapter) {
		t.Fatalf("expected ErrNoChapter, got %v", err)
	}
	h.openChapter(t, "s1", "c1")
	if err := h.s.Tap(ctx, Tap{Action: TapPlay, Segment: "appendix"}); !errors.Is(err, ErrBadSegment) {
		t.Fatalf("expected ErrBadSegment, got %v", err)
	}
	if err := h.s.Tap(ctx, Tap{Action: "dance"}); !errors.Is(err, ErrUnknownTap) {
		t.Fatalf("expected ErrUnknownTap, got %v", err)
	}
	if err := h.s.Tap(ctx, Tap{Action: TapHome}); err != nil {
		t.Fatalf("home: %v", err)
	}
	if err := h.s.Tap(ctx, Tap{Action: TapBack}); err != nil {
		t.Fatalf("back at home is a no-op, got %v", err)
	}
}

func TestPublishOnChange(t *testing.T) {
	h := newHarness(t)
	h.tap(t, Tap{Action: TapSelectSubject, SubjectID: "s1"})
	h.snap(t)
	h.snap(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.published) != 2 {
		t.Fatalf("expected initial + one change, got %d", len(h.published))
	}
	if h.published[1].View != "subject" || h.published[1].Hints == "" {
		t.Fatalf("unexpected published snapshot %+v", h.published[1])
	}
}

func TestClosedSessionRejectsPosts(t *testing.T) {
	cat, _ := catalog.Default()
	s, err := New(cat, &fakeRecognizer{}, &fakeSynth{}, store.New(0), Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run: %v", err)
	}
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
