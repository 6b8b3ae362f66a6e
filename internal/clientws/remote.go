package clientws

import (
	"encoding/json"
	"errors"

	"voicereader/agent/internal/speech"
)

var ErrNoClient = errors.New("clientws: no client attached")

// Remote drives the speech engines running in the attached client. It
// implements speech.Recognizer and speech.Synthesizer.
type Remote struct {
	reg       *Registry
	sessionID string
}

func NewRemote(reg *Registry, sessionID string) *Remote {
	return &Remote{reg: reg, sessionID: sessionID}
}

func (r *Remote) Start() error {
	if !r.reg.Send(r.sessionID, Message{Type: TypeRecognizerStart}) {
		return ErrNoClient
	}
	return nil
}

func (r *Remote) Stop() {
	r.reg.Send(r.sessionID, Message{Type: TypeRecognizerStop})
}

func (r *Remote) Speak(u speech.Utterance) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if !r.reg.Send(r.sessionID, Message{Type: TypeSpeak, UtteranceID: u.ID, Payload: payload}) {
		return ErrNoClient
	}
	return nil
}

func (r *Remote) Cancel() { r.reg.Send(r.sessionID, Message{Type: TypeSpeechCancel}) }
func (r *Remote) Pause()  { r.reg.Send(r.sessionID, Message{Type: TypeSpeechPause}) }
func (r *Remote) Resume() { r.reg.Send(r.sessionID, Message{Type: TypeSpeechResume}) }
