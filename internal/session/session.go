// Package session runs the reader for one user.
//
// Every input (recognition results, engine callbacks, taps, timers) is an
// Event consumed by a single loop goroutine. Navigation, playback, listening
// and the duplicate lock are only touched from that loop, so none of them
// need their own synchronization beyond what they already carry.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/command"
	"voicereader/agent/internal/lock"
	"voicereader/agent/internal/nav"
	"voicereader/agent/internal/playback"
	"voicereader/agent/internal/speech"
	"voicereader/agent/internal/store"
	"voicereader/agent/internal/types"
)

var (
	ErrClosed           = errors.New("session: closed")
	ErrVoiceUnsupported = errors.New("session: voice input not supported by client")
)

type Options struct {
	ID          string
	LockWindow  time.Duration
	FeedbackTTL time.Duration
	RestartMax  time.Duration
	Language    string
	Playback    playback.Options
	QueueSize   int
	// Clock drives the lock window, feedback expiry and restart retries.
	Clock lock.Clock
	// Publish receives a snapshot whenever it changes. It runs on the loop and
	// must not block.
	Publish func(Snapshot)
}

type Session struct {
	id      string
	opts    Options
	catalog *catalog.Catalog
	router  *command.Router
	lock    *lock.Manager
	player  *playback.Controller
	listen  *speech.Listener
	store   *store.Store
	log     *zap.Logger
	clock   lock.Clock

	events chan Event
	done   chan struct{}

	nav            nav.State
	voiceSupported bool
	voice          string
	transcript     string
	feedback       string
	feedbackGen    uint64
	published      Snapshot
}

func New(cat *catalog.Catalog, rec speech.Recognizer, synth speech.Synthesizer, st *store.Store, opts Options, log *zap.Logger) (*Session, error) {
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.FeedbackTTL <= 0 {
		opts.FeedbackTTL = 5 * time.Second
	}
	if opts.RestartMax <= 0 {
		opts.RestartMax = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = lock.RealClock
	}
	s := &Session{
		id:      opts.ID,
		opts:    opts,
		catalog: cat,
		router:  command.NewRouter(cat),
		store:   st,
		log:     log.With(zap.String("session_id", opts.ID)),
		clock:   opts.Clock,
		events:  make(chan Event, opts.QueueSize),
		done:    make(chan struct{}),
		nav:     nav.Home(),
	}
	s.lock = lock.New(opts.LockWindow, loopClock{s})
	s.player = playback.NewController(synth, opts.Playback, s.log)
	s.listen = speech.NewListener(rec, s.schedule, opts.RestartMax, s.log)

	if err := st.CreateSession(&types.Session{ID: s.id, CreatedAt: time.Now().UTC(), Catalog: catalogLabel(cat)}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Run consumes events until ctx is done. It must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.publish()
	for {
		select {
		case <-ctx.Done():
			s.listen.Stop()
			s.player.Stop()
			return ctx.Err()
		case ev := <-s.events:
			s.handle(ev)
			s.publish()
		}
	}
}

// Post delivers ev to the loop.
func (s *Session) Post(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if err := s.Post(ctx, call{fn: func() { errc <- fn() }}); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue is used by timers; it gives up once the loop has exited.
func (s *Session) enqueue(fn func()) {
	select {
	case s.events <- call{fn: fn}:
	case <-s.done:
	}
}

// schedule delivers fn on the loop after d. The returned cancel must be called
// from the loop.
func (s *Session) schedule(d time.Duration, fn func()) func() {
	cancelled := false
	stop := s.clock.AfterFunc(d, func() {
		s.enqueue(func() {
			if !cancelled {
				fn()
			}
		})
	})
	return func() {
		cancelled = true
		stop()
	}
}

// loopClock runs lock timers on the session loop.
type loopClock struct{ s *Session }

func (c loopClock) Now() time.Time { return c.s.clock.Now() }
func (c loopClock) AfterFunc(d time.Duration, f func()) func() {
	return c.s.clock.AfterFunc(d, func() { c.s.enqueue(f) })
}

func (s *Session) handle(ev Event) {
	metricEvents.WithLabelValues(ev.eventName()).Inc()
	switch e := ev.(type) {
	case call:
		e.fn()
	case ResultReceived:
		s.onResult(e.Result)
	case RecognitionError:
		fatal := s.listen.OnError(e.Code)
		if fatal {
			s.log.Warn("recognition error; listening off", zap.String("code", e.Code))
			s.record("recognition_error", map[string]any{"code": e.Code, "fatal": true})
		}
	case RecognitionEnded:
		s.listen.OnEnd()
	case UtteranceEnded:
		s.player.OnUtteranceEnded(e.ID)
	case ClientHello:
		s.onHello(e)
	case ClientGone:
		s.listen.Stop()
		s.lock.Release()
		s.player.Stop()
		s.store.ClearClient(s.id, time.Now().UTC())
		s.record("client_gone", nil)
	}
}

func (s *Session) onHello(e ClientHello) {
	s.voiceSupported = e.VoiceSupported
	if v, ok := speech.SelectVoice(e.Voices, s.opts.Language); ok {
		s.voice = v.Name
	} else {
		s.voice = ""
	}
	s.player.SetVoice(s.voice)
	if !s.voiceSupported {
		s.listen.Stop()
	}
	s.store.SetClient(s.id, e.UserAgent, time.Now().UTC())
	s.record("client_hello", map[string]any{"voice_supported": e.VoiceSupported, "voice": s.voice})
}

func (s *Session) onResult(ev speech.ResultEvent) {
	if !s.voiceSupported || !s.listen.Listening() {
		return
	}
	text := ev.Transcript()
	if text == "" {
		return
	}
	s.transcript = text
	if s.lock.Holds(text) {
		metricDuplicates.Inc()
		return
	}
	a, ok := s.router.Route(text, s.nav, s.player.Status())
	command.Observe(s.nav.View, a, ok)
	if !ok {
		s.log.Debug("no command", zap.String("transcript", text), zap.Stringer("view", s.nav.View))
		s.record("command_rejected", map[string]any{"transcript": text, "view": s.nav.View.String()})
		return
	}
	if !s.lock.TryAccept(text) {
		metricDuplicates.Inc()
		return
	}
	s.apply(a, "voice", text)
	s.listen.Flush()
}

// apply executes a decided action. Navigation leaving the open chapter stops
// playback before the announcement, so the announcement is audible.
func (s *Session) apply(a command.Action, source, transcript string) {
	switch a.Kind {
	case command.KindStop:
		s.player.Stop()
	case command.KindPause:
		s.player.Pause()
	case command.KindResume:
		s.player.Resume()
	case command.KindPlay:
		if err := s.player.Play(a.Text, a.Segment); err != nil {
			s.log.Warn("play failed", zap.Stringer("segment", a.Segment), zap.Error(err))
		}
	}
	if a.Kind.Navigates() {
		s.navigate(a.Next)
	}
	s.announce(a.Announce)

	metricCommands.WithLabelValues(source).Inc()
	s.log.Info("command",
		zap.String("source", source),
		zap.String("transcript", transcript),
		zap.Stringer("kind", a.Kind),
		zap.Stringer("tier", a.Tier),
		zap.String("rule", a.Rule))
	s.record("command_accepted", map[string]any{
		"source":     source,
		"transcript": transcript,
		"kind":       a.Kind.String(),
		"tier":       a.Tier.String(),
		"rule":       a.Rule,
		"view":       s.nav.View.String(),
	})
}

func (s *Session) navigate(next nav.State) {
	if err := next.Validate(); err != nil {
		s.log.Error("refusing navigation", zap.Error(err))
		return
	}
	cur := s.nav
	if cur.View == nav.ViewChapter && (next.View != nav.ViewChapter || next.Chapter != cur.Chapter) {
		s.player.Stop()
	}
	s.nav = next
	s.record("navigated", map[string]any{
		"from": cur.View.String(), "to": next.View.String(),
		"subject_id": next.SubjectID(), "chapter_id": next.ChapterID(),
	})
}

// announce shows text as feedback and speaks it unless content is playing.
func (s *Session) announce(text string) {
	if text == "" {
		return
	}
	s.feedback = text
	s.feedbackGen++
	gen := s.feedbackGen
	s.clock.AfterFunc(s.opts.FeedbackTTL, func() {
		s.enqueue(func() {
			if s.feedbackGen == gen {
				s.feedback = ""
			}
		})
	})
	s.player.Announce(text)
}

func (s *Session) setListening(on bool) error {
	if !on {
		if s.listen.Listening() {
			s.listen.Stop()
			s.lock.Release()
			s.record("listening", map[string]any{"on": false})
		}
		return nil
	}
	if !s.voiceSupported {
		return ErrVoiceUnsupported
	}
	if s.listen.Listening() {
		return nil
	}
	if err := s.listen.Start(); err != nil {
		return err
	}
	s.record("listening", map[string]any{"on": true})
	s.announce(command.ListeningAnnouncement())
	return nil
}

// SetListening turns voice input on or off.
func (s *Session) SetListening(ctx context.Context, on bool) error {
	return s.do(ctx, func() error { return s.setListening(on) })
}

// Snapshot returns the current state as seen by the client.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// Info returns the stored session record: creation time, catalog and the
// attached client.
func (s *Session) Info() *types.Session {
	return s.store.GetSession(s.id)
}

// Events returns the session's event log.
func (s *Session) Events() []types.Event {
	return s.store.ListEvents(s.id)
}

func (s *Session) publish() {
	snap := s.snapshot()
	if snap == s.published {
		return
	}
	s.published = snap
	if s.opts.Publish != nil {
		s.opts.Publish(snap)
	}
}

func (s *Session) record(typ string, payload map[string]any) {
	s.store.AppendEvent(s.id, typ, payload)
}

func catalogLabel(cat *catalog.Catalog) string {
	subs := cat.Subjects()
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return strings.Join(ids, ",")
}
