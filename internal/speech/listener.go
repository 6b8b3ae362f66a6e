package speech

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrNoSpeech is the transient recognition error code that keeps listening on.
const ErrNoSpeech = "no-speech"

// Scheduler runs fn after d and returns a func that cancels it. The session
// passes one that delivers fn on its event loop.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// Listener keeps a Recognizer running while the user wants it to listen.
//
// The intent flag is the only thing consulted when the engine ends a session:
// the engine is restarted while intent is set and left alone otherwise. An
// explicit Stop clears intent and cancels any pending restart, so a retry
// scheduled before the stop cannot bring the recognizer back.
type Listener struct {
	rec      Recognizer
	schedule Scheduler
	bo       *backoff.ExponentialBackOff
	log      *zap.Logger

	intent  bool
	pending func()
}

func NewListener(rec Recognizer, schedule Scheduler, maxRetry time.Duration, log *zap.Logger) *Listener {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = maxRetry
	bo.Reset()
	return &Listener{rec: rec, schedule: schedule, bo: bo, log: log}
}

// Listening reports the intent flag.
func (l *Listener) Listening() bool { return l.intent }

// Start sets the intent and arms the recognizer. On failure the intent is
// cleared again and the error returned.
func (l *Listener) Start() error {
	l.cancelPending()
	l.intent = true
	if err := l.rec.Start(); err != nil {
		l.intent = false
		metricRecognizerStarts.WithLabelValues("error").Inc()
		return err
	}
	l.bo.Reset()
	metricRecognizerStarts.WithLabelValues("ok").Inc()
	return nil
}

// Stop clears the intent, drops any scheduled restart and disarms the engine.
func (l *Listener) Stop() {
	l.intent = false
	l.cancelPending()
	l.rec.Stop()
}

// Flush stops the current recognition session so buffered words are dropped.
// The end-of-session that follows restarts it while the intent holds.
func (l *Listener) Flush() {
	if l.intent {
		l.rec.Stop()
	}
}

// OnEnd handles the engine's end-of-session.
func (l *Listener) OnEnd() {
	if !l.intent {
		return
	}
	l.restart()
}

// OnError handles a recognition error and reports whether it was fatal. Only
// ErrNoSpeech is tolerated; anything else turns listening off until re-armed.
func (l *Listener) OnError(code string) bool {
	metricRecognizerErrors.WithLabelValues(code).Inc()
	if code == ErrNoSpeech {
		return false
	}
	l.intent = false
	l.cancelPending()
	return true
}

func (l *Listener) restart() {
	if l.pending != nil {
		return
	}
	err := l.rec.Start()
	if err == nil {
		l.bo.Reset()
		metricRecognizerStarts.WithLabelValues("restart").Inc()
		return
	}
	d := l.bo.NextBackOff()
	if d == backoff.Stop {
		l.log.Warn("recognizer restart gave up", zap.Error(err))
		l.intent = false
		return
	}
	l.log.Debug("recognizer restart failed; retrying", zap.Error(err), zap.Duration("in", d))
	l.pending = l.schedule(d, func() {
		l.pending = nil
		if l.intent {
			l.restart()
		}
	})
}

func (l *Listener) cancelPending() {
	if l.pending != nil {
		l.pending()
		l.pending = nil
	}
}
