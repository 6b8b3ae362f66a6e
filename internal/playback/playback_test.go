package playback

import (
	"errors"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"voicereader/agent/internal/speech"
)

type fakeSynth struct {
	spoken   []speech.Utterance
	cancels  int
	pauses   int
	resumes  int
	failNext bool
}

func (f *fakeSynth) Speak(u speech.Utterance) error {
	if f.failNext {
		f.failNext = false
		return errors.New("engine gone")
	}
	f.spoken = append(f.spoken, u)
	return nil
}
func (f *fakeSynth) Cancel() { f.cancels++ }
func (f *fakeSynth) Pause()  { f.pauses++ }
func (f *fakeSynth) Resume() { f.resumes++ }

func (f *fakeSynth) last() speech.Utterance { return f.spoken[len(f.spoken)-1] }

func newTestController() (*Controller, *fakeSynth) {
	fs := &fakeSynth{}
	c := NewController(fs, Options{ContentRate: 0.9, SystemRate: 1.1}, zap.NewNop())
	n := 0
	c.newID = func() string { n++; return "u" + strconv.Itoa(n) }
	return c, fs
}

func TestPlayPauseResume(t *testing.T) {
	c, fs := newTestController()

	if err := c.Play("chapter text", SegmentContent); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := c.Status(); got != (Status{Playing, SegmentContent}) {
		t.Fatalf("after play: %+v", got)
	}
	if u := fs.last(); u.Text != "chapter text" || u.Rate != 0.9 || u.Kind != speech.KindContent {
		t.Fatalf("unexpected utterance %+v", u)
	}

	c.Pause()
	if got := c.Status(); got != (Status{Paused, SegmentContent}) {
		t.Fatalf("after pause: %+v", got)
	}

	if !c.Resume() {
		t.Fatalf("resume should report true while paused")
	}
	if got := c.Status(); got != (Status{Playing, SegmentContent}) {
		t.Fatalf("after resume: %+v", got)
	}
	if len(fs.spoken) != 1 || fs.resumes != 1 {
		t.Fatalf("resume must not restart: spoken=%d resumes=%d", len(fs.spoken), fs.resumes)
	}
}

func TestPlayOtherSegmentWhilePausedRestarts(t *testing.T) {
	c, fs := newTestController()
	_ = c.Play("content", SegmentContent)
	c.Pause()

	_ = c.Play("summary", SegmentSummary)
	if got := c.Status(); got != (Status{Playing, SegmentSummary}) {
		t.Fatalf("status: %+v", got)
	}
	if len(fs.spoken) != 2 || fs.resumes != 0 {
		t.Fatalf("expected a fresh utterance, spoken=%d resumes=%d", len(fs.spoken), fs.resumes)
	}
	if fs.cancels != 2 {
		t.Fatalf("each new utterance cancels the previous, cancels=%d", fs.cancels)
	}
}

func TestStopAlwaysEndsStopped(t *testing.T) {
	for _, setup := range []func(c *Controller){
		func(c *Controller) {},
		func(c *Controller) { _ = c.Play("x", SegmentQA) },
		func(c *Controller) { _ = c.Play("x", SegmentQA); c.Pause() },
	} {
		c, _ := newTestController()
		setup(c)
		c.Stop()
		if got := c.Status(); got != (Status{}) {
			t.Fatalf("after stop: %+v", got)
		}
	}
}

func TestPauseAndResumeNoOps(t *testing.T) {
	c, fs := newTestController()
	c.Pause()
	if c.Resume() {
		t.Fatalf("resume while stopped")
	}
	c.Stop()
	if fs.pauses != 0 || fs.resumes != 0 || fs.cancels != 0 {
		t.Fatalf("no engine calls expected: %+v", fs)
	}
}

func TestCompletionOfLiveUtteranceStops(t *testing.T) {
	c, fs := newTestController()
	_ = c.Play("one", SegmentContent)
	first := fs.last().ID
	_ = c.Play("two", SegmentSummary)
	second := fs.last().ID

	c.OnUtteranceEnded(first)
	if got := c.Status(); got.State != Playing {
		t.Fatalf("superseded completion must be ignored: %+v", got)
	}
	c.OnUtteranceEnded(second)
	if got := c.Status(); got != (Status{}) {
		t.Fatalf("live completion should stop: %+v", got)
	}
}

func TestAnnounceDroppedWhilePlaying(t *testing.T) {
	c, fs := newTestController()
	if !c.Announce("hello") {
		t.Fatalf("announce while stopped should speak")
	}
	if u := fs.last(); u.Kind != speech.KindSystem || u.Rate != 1.1 {
		t.Fatalf("unexpected system utterance %+v", u)
	}

	_ = c.Play("content", SegmentContent)
	n := len(fs.spoken)
	if c.Announce("Reading chapter content.") {
		t.Fatalf("announce while playing must be dropped")
	}
	if len(fs.spoken) != n {
		t.Fatalf("dropped announcement reached the engine")
	}

	c.OnUtteranceEnded(fs.spoken[0].ID)
	if got := c.Status(); got.State != Playing {
		t.Fatalf("system utterance completion must not stop content: %+v", got)
	}
}

func TestStopThenAnnounce(t *testing.T) {
	c, fs := newTestController()
	_ = c.Play("content", SegmentContent)
	c.Stop()
	if !c.Announce("Audio stopped.") {
		t.Fatalf("announcement after stop should be spoken")
	}
	if fs.last().Text != "Audio stopped." {
		t.Fatalf("last utterance %+v", fs.last())
	}
}

func TestPlayErrors(t *testing.T) {
	c, fs := newTestController()
	if err := c.Play("x", SegmentNone); !errors.Is(err, ErrNoSegment) {
		t.Fatalf("expected ErrNoSegment, got %v", err)
	}
	fs.failNext = true
	if err := c.Play("x", SegmentContent); err == nil {
		t.Fatalf("expected speak error")
	}
	if got := c.Status(); got != (Status{}) {
		t.Fatalf("failed play should leave Stopped: %+v", got)
	}
}

func TestParseSegment(t *testing.T) {
	for _, s := range []Segment{SegmentContent, SegmentSummary, SegmentQA} {
		got, ok := ParseSegment(s.String())
		if !ok || got != s {
			t.Errorf("round trip %v: %v %v", s, got, ok)
		}
	}
	if _, ok := ParseSegment("appendix"); ok {
		t.Errorf("unknown segment accepted")
	}
}
