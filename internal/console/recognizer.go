package console

import (
	"sync"

	"voicereader/agent/internal/session"
	"voicereader/agent/internal/speech"
)

// Recognizer turns typed lines into final recognition results while armed.
// Stopping an armed recognizer reports end-of-session the way a real engine
// does, so the listener's restart logic runs unchanged.
type Recognizer struct {
	post func(session.Event)

	mu    sync.Mutex
	armed bool
}

func (r *Recognizer) Start() error {
	r.mu.Lock()
	r.armed = true
	r.mu.Unlock()
	return nil
}

// Stop disarms the recognizer. It is called from the session loop, so the
// end-of-session is posted from another goroutine.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	was := r.armed
	r.armed = false
	r.mu.Unlock()
	if was {
		go r.post(session.RecognitionEnded{})
	}
}

func (r *Recognizer) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Deliver posts line as a final result. It reports false when not armed.
func (r *Recognizer) Deliver(line string) bool {
	if !r.Armed() {
		return false
	}
	r.post(session.ResultReceived{Result: speech.ResultEvent{
		Results: []speech.Result{{
			Final:        true,
			Alternatives: []speech.Alternative{{Transcript: line, Confidence: 1}},
		}},
	}})
	return true
}
