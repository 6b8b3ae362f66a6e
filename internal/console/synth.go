package console

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"voicereader/agent/internal/lock"
	"voicereader/agent/internal/speech"
)

// wordsPerSecond is the simulated speaking speed at rate 1.0.
const wordsPerSecond = 2.5

type utterance struct {
	u         speech.Utterance
	remaining time.Duration
	startedAt time.Time
	stop      func()
}

// Synth is a text-to-speech engine for the terminal. Utterances are printed
// when they start and complete after a duration derived from their word count
// and rate. Like a browser engine it keeps a queue, and Pause halts the
// utterance at its head.
type Synth struct {
	out   *output
	clock lock.Clock
	speed float64
	onEnd func(id string)

	mu     sync.Mutex
	queue  []*utterance
	paused bool
}

func newSynth(out *output, clock lock.Clock, speed float64, onEnd func(id string)) *Synth {
	if speed <= 0 {
		speed = 1
	}
	return &Synth{out: out, clock: clock, speed: speed, onEnd: onEnd}
}

func (s *Synth) duration(u speech.Utterance) time.Duration {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(u.Text))
	secs := float64(words) / (wordsPerSecond * rate * s.speed)
	return time.Duration(secs * float64(time.Second))
}

func (s *Synth) Speak(u speech.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, &utterance{u: u, remaining: s.duration(u)})
	if len(s.queue) == 1 && !s.paused {
		s.startLocked(true)
	}
	return nil
}

func (s *Synth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 && s.queue[0].stop != nil {
		s.queue[0].stop()
	}
	s.queue = nil
	s.paused = false
}

func (s *Synth) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	if len(s.queue) == 0 {
		return
	}
	head := s.queue[0]
	if head.stop != nil {
		head.stop()
		head.stop = nil
		head.remaining -= s.clock.Now().Sub(head.startedAt)
		if head.remaining < 0 {
			head.remaining = 0
		}
	}
	s.out.line(s.out.styles.Dim.Render("  [paused]"))
}

func (s *Synth) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	if len(s.queue) > 0 {
		s.out.line(s.out.styles.Dim.Render("  [resumed]"))
		s.startLocked(false)
	}
}

// startLocked runs the head of the queue, announcing it when it is new.
func (s *Synth) startLocked(fresh bool) {
	head := s.queue[0]
	if fresh {
		s.print(head.u)
	}
	head.startedAt = s.clock.Now()
	head.stop = s.clock.AfterFunc(head.remaining, func() { s.finish(head) })
}

func (s *Synth) finish(u *utterance) {
	s.mu.Lock()
	if len(s.queue) == 0 || s.queue[0] != u || s.paused {
		s.mu.Unlock()
		return
	}
	s.queue = s.queue[1:]
	if len(s.queue) > 0 {
		s.startLocked(true)
	}
	s.mu.Unlock()
	if s.onEnd != nil {
		s.onEnd(u.u.ID)
	}
}

func (s *Synth) print(u speech.Utterance) {
	st := s.out.styles
	if u.Kind == speech.KindContent {
		s.out.line(st.Content.Render(u.Text))
		return
	}
	s.out.line(st.System.Render(fmt.Sprintf("» %s", u.Text)))
}
