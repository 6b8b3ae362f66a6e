package session

import "voicereader/agent/internal/speech"

// Event is anything delivered to the session loop.
type Event interface {
	eventName() string
}

// ResultReceived carries one recognition result event from the engine.
type ResultReceived struct {
	Result speech.ResultEvent
}

// RecognitionError reports an engine error code such as "no-speech".
type RecognitionError struct {
	Code string
}

// RecognitionEnded reports that the engine ended its recognition session.
type RecognitionEnded struct{}

// UtteranceEnded reports natural completion of an utterance.
type UtteranceEnded struct {
	ID string
}

// ClientHello describes the capabilities of a newly attached client.
type ClientHello struct {
	VoiceSupported bool
	Voices         []speech.Voice
	UserAgent      string
}

// ClientGone reports that the client detached; its engines are gone with it.
type ClientGone struct{}

type call struct {
	fn func()
}

func (ResultReceived) eventName() string   { return "result" }
func (RecognitionError) eventName() string { return "recognition_error" }
func (RecognitionEnded) eventName() string { return "recognition_end" }
func (UtteranceEnded) eventName() string   { return "utterance_end" }
func (ClientHello) eventName() string      { return "client_hello" }
func (ClientGone) eventName() string       { return "client_gone" }
func (call) eventName() string             { return "call" }
