// Package console runs the reader in a terminal. Typed lines stand in for
// recognized speech and utterances are printed instead of spoken, paced as if
// they were.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voicereader/agent/internal/command"
	"voicereader/agent/internal/lock"
	"voicereader/agent/internal/nav"
	"voicereader/agent/internal/session"
	"voicereader/agent/internal/speech"
)

// Session is the part of session.Session the console drives.
type Session interface {
	Post(ctx context.Context, ev session.Event) error
	Tap(ctx context.Context, t session.Tap) error
	SetListening(ctx context.Context, on bool) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// output serializes writes from the loop, the timers and the prompt.
type output struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
}

func (o *output) line(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.w, s)
}

type Options struct {
	Out      io.Writer
	Styles   Styles
	Clock    lock.Clock
	Language string
	// Speed scales the simulated speaking time; 2 reads twice as fast.
	Speed float64
}

// Console owns the terminal engines. Create it first, hand Synth and
// Recognizer to session.New, then Attach the session before running either.
type Console struct {
	out  *output
	lang string
	log  *zap.Logger
	sess Session

	Synth      *Synth
	Recognizer *Recognizer

	mu   sync.Mutex
	last session.Snapshot
}

func New(opts Options, log *zap.Logger) *Console {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = lock.RealClock
	}
	if opts.Language == "" {
		opts.Language = "en-IN"
	}
	c := &Console{
		out:  &output{w: opts.Out, styles: opts.Styles},
		lang: opts.Language,
		log:  log,
	}
	c.Synth = newSynth(c.out, opts.Clock, opts.Speed, func(id string) {
		c.post(session.UtteranceEnded{ID: id})
	})
	c.Recognizer = &Recognizer{post: c.post}
	return c
}

func (c *Console) Attach(s Session) { c.sess = s }

func (c *Console) post(ev session.Event) {
	if err := c.sess.Post(context.Background(), ev); err != nil {
		c.log.Debug("console post", zap.Error(err))
	}
}

// Publish renders state changes. It is the session's Publish hook and runs on
// the session loop.
func (c *Console) Publish(snap session.Snapshot) {
	c.mu.Lock()
	prev := c.last
	c.last = snap
	c.mu.Unlock()

	st := c.out.styles
	if statusChanged(prev, snap) {
		c.out.line(st.Status.Render(statusLine(snap)))
		if snap.View != prev.View {
			c.out.line(st.Dim.Render("  try: " + snap.Hints))
		}
	}
	// an announcement made while content plays is not spoken, only shown
	if snap.Feedback != "" && snap.Feedback != prev.Feedback && snap.Playback == "playing" {
		c.out.line(st.Feedback.Render("  (" + snap.Feedback + ")"))
	}
}

func statusChanged(a, b session.Snapshot) bool {
	return a.View != b.View || a.SubjectID != b.SubjectID || a.ChapterID != b.ChapterID ||
		a.Playback != b.Playback || a.Segment != b.Segment || a.Listening != b.Listening
}

func statusLine(s session.Snapshot) string {
	parts := []string{s.View}
	if s.SubjectTitle != "" {
		parts = append(parts, s.SubjectTitle)
	}
	if s.ChapterTitle != "" {
		parts = append(parts, s.ChapterTitle)
	}
	play := s.Playback
	if s.Segment != "" {
		play += " " + s.Segment
	}
	parts = append(parts, play)
	if s.Listening {
		parts = append(parts, "mic on")
	} else {
		parts = append(parts, "mic off")
	}
	return "[" + strings.Join(parts, " · ") + "]"
}

// Run introduces the console as a voice-capable client, turns listening on
// and reads lines from in until it is exhausted, ctx ends or /quit is typed.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	hello := session.ClientHello{
		VoiceSupported: true,
		Voices:         []speech.Voice{{Name: "Console Female", Lang: c.lang}},
		UserAgent:      "console",
	}
	if err := c.sess.Post(ctx, hello); err != nil {
		return err
	}
	if err := c.sess.SetListening(ctx, true); err != nil {
		return err
	}
	c.out.line(c.out.styles.Dim.Render("type what you would say; /help lists console commands"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.handleLine(ctx, line)
			if err != nil {
				c.out.line(c.out.styles.Error.Render("  " + err.Error()))
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *Console) handleLine(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		if !c.Recognizer.Deliver(line) {
			c.out.line(c.out.styles.Dim.Render("  microphone is off; type /listen"))
		}
		return false, nil
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/listen":
		return false, c.sess.SetListening(ctx, true)
	case "/mute":
		return false, c.sess.SetListening(ctx, false)
	case "/state":
		snap, err := c.sess.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		c.out.line(c.out.styles.Status.Render(statusLine(snap)))
		if snap.Transcript != "" {
			c.out.line(c.out.styles.Transcript.Render("  heard: " + snap.Transcript))
		}
		return false, nil
	case "/help":
		snap, err := c.sess.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if v, ok := nav.ParseView(snap.View); ok {
			c.out.line(c.out.styles.System.Render("  " + command.HelpText(v)))
		}
		c.out.line(c.out.styles.Dim.Render("  console: /listen /mute /state /tap <action> [id|segment] /quit"))
		return false, nil
	case "/tap":
		t, err := parseTap(fields[1:])
		if err != nil {
			return false, err
		}
		return false, c.sess.Tap(ctx, t)
	}
	return false, fmt.Errorf("unknown console command %s", fields[0])
}

// parseTap reads "<action> [arg]" where arg is the subject id, chapter id or
// segment depending on the action.
func parseTap(args []string) (session.Tap, error) {
	if len(args) == 0 {
		return session.Tap{}, fmt.Errorf("usage: /tap <action> [id|segment]")
	}
	t := session.Tap{Action: session.TapKind(args[0])}
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}
	switch t.Action {
	case session.TapSelectSubject:
		t.SubjectID = arg
	case session.TapSelectChapter:
		t.ChapterID = arg
	case session.TapPlay:
		t.Segment = arg
	}
	return t, nil
}
