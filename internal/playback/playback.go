// Package playback wraps the text-to-speech engine in a three-state machine:
//
//	Stopped --Play--> Playing --Pause--> Paused --Play(same segment)--> Playing
//	Playing|Paused --Stop--> Stopped
//	Playing --(utterance ended)--> Stopped
//
// There is no queue. Play always supersedes the live utterance, and completion
// of a superseded utterance is ignored.
package playback

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicereader/agent/internal/speech"
)

var ErrNoSegment = errors.New("playback: segment required")

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Segment names the part of a chapter being read.
type Segment int

const (
	SegmentNone Segment = iota
	SegmentContent
	SegmentSummary
	SegmentQA
)

func (s Segment) String() string {
	switch s {
	case SegmentNone:
		return ""
	case SegmentContent:
		return "content"
	case SegmentSummary:
		return "summary"
	case SegmentQA:
		return "qa"
	}
	return fmt.Sprintf("segment(%d)", int(s))
}

func ParseSegment(s string) (Segment, bool) {
	switch s {
	case "content":
		return SegmentContent, true
	case "summary":
		return SegmentSummary, true
	case "qa":
		return SegmentQA, true
	}
	return SegmentNone, false
}

// Status is what is being read and whether it is audible.
// Segment is SegmentNone exactly when State is Stopped.
type Status struct {
	State   State
	Segment Segment
}

type Options struct {
	ContentRate float64
	SystemRate  float64
	Voice       string
}

// Controller owns the playback Status. It is not safe for concurrent use; the
// session loop is its only caller.
type Controller struct {
	synth speech.Synthesizer
	opts  Options
	log   *zap.Logger
	newID func() string

	status      Status
	utteranceID string
}

func NewController(synth speech.Synthesizer, opts Options, log *zap.Logger) *Controller {
	return &Controller{
		synth: synth,
		opts:  opts,
		log:   log,
		newID: func() string { return uuid.New().String() },
	}
}

func (c *Controller) Status() Status { return c.status }

// SetVoice changes the voice used for utterances started from now on.
func (c *Controller) SetVoice(name string) { c.opts.Voice = name }

// Play starts reading text as seg. When paused on the same segment it resumes
// instead, leaving text unused.
func (c *Controller) Play(text string, seg Segment) error {
	if seg == SegmentNone {
		return ErrNoSegment
	}
	if c.status.State == Paused && c.status.Segment == seg {
		c.synth.Resume()
		c.transition(Status{State: Playing, Segment: seg})
		return nil
	}

	c.synth.Cancel()
	id := c.newID()
	err := c.synth.Speak(speech.Utterance{
		ID:    id,
		Text:  text,
		Rate:  c.opts.ContentRate,
		Voice: c.opts.Voice,
		Kind:  speech.KindContent,
	})
	if err != nil {
		c.utteranceID = ""
		c.transition(Status{})
		return fmt.Errorf("speak %s: %w", seg, err)
	}
	c.utteranceID = id
	c.transition(Status{State: Playing, Segment: seg})
	return nil
}

// Resume continues a paused segment. It reports false when nothing is paused.
func (c *Controller) Resume() bool {
	if c.status.State != Paused {
		return false
	}
	_ = c.Play("", c.status.Segment)
	return true
}

func (c *Controller) Pause() {
	if c.status.State != Playing {
		return
	}
	c.synth.Pause()
	c.transition(Status{State: Paused, Segment: c.status.Segment})
}

func (c *Controller) Stop() {
	if c.status.State == Stopped {
		return
	}
	c.synth.Cancel()
	c.utteranceID = ""
	c.transition(Status{})
}

// Announce speaks a short system message unless content is playing, in which
// case the message is dropped. It reports whether the message was spoken.
func (c *Controller) Announce(text string) bool {
	if text == "" {
		return false
	}
	if c.status.State == Playing {
		metricAnnouncements.WithLabelValues("dropped").Inc()
		return false
	}
	err := c.synth.Speak(speech.Utterance{
		ID:    c.newID(),
		Text:  text,
		Rate:  c.opts.SystemRate,
		Voice: c.opts.Voice,
		Kind:  speech.KindSystem,
	})
	if err != nil {
		c.log.Debug("announce failed", zap.String("text", text), zap.Error(err))
		metricAnnouncements.WithLabelValues("failed").Inc()
		return false
	}
	metricAnnouncements.WithLabelValues("spoken").Inc()
	return true
}

// OnUtteranceEnded handles the engine's completion signal. Only the live
// content utterance moves the machine; anything else was superseded or was a
// system message.
func (c *Controller) OnUtteranceEnded(id string) {
	if id == "" || id != c.utteranceID {
		return
	}
	c.utteranceID = ""
	c.transition(Status{})
}

func (c *Controller) transition(to Status) {
	from := c.status
	c.status = to
	if from.State != to.State {
		metricTransitions.WithLabelValues(from.State.String(), to.State.String()).Inc()
	}
	if from != to {
		c.log.Debug("playback",
			zap.Stringer("from", from.State), zap.Stringer("to", to.State),
			zap.Stringer("segment", to.Segment))
	}
}
