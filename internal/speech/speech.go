// Package speech defines the boundary to the speech-to-text and text-to-speech
// engines. The engines themselves run elsewhere (in the client or a console
// adapter); this package only describes what they emit and accept.
package speech

import "strings"

// Alternative is one hypothesis for a recognition result. Engines order
// alternatives best first.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Result is one recognition result, interim until Final is set.
type Result struct {
	Final        bool          `json:"final"`
	Alternatives []Alternative `json:"alternatives"`
}

// ResultEvent carries the engine's result list. Results before ResultIndex
// were already delivered in earlier events and are not re-read.
type ResultEvent struct {
	ResultIndex int      `json:"result_index"`
	Results     []Result `json:"results"`
}

// Transcript joins the best alternative of every new result, keeping final and
// interim text apart, and returns the normalized final text if there is any,
// else the interim text.
func (e ResultEvent) Transcript() string {
	var final, interim strings.Builder
	start := e.ResultIndex
	if start < 0 {
		start = 0
	}
	for i := start; i < len(e.Results); i++ {
		r := e.Results[i]
		if len(r.Alternatives) == 0 {
			continue
		}
		if r.Final {
			final.WriteString(r.Alternatives[0].Transcript)
		} else {
			interim.WriteString(r.Alternatives[0].Transcript)
		}
	}
	if t := Normalize(final.String()); t != "" {
		return t
	}
	return Normalize(interim.String())
}

// Normalize lowercases and trims a transcript.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Recognizer is a continuous speech-to-text engine. Start and Stop only arm
// and disarm it; results, errors and end-of-session arrive as events.
type Recognizer interface {
	Start() error
	Stop()
}

type UtteranceKind string

const (
	KindContent UtteranceKind = "content"
	KindSystem  UtteranceKind = "system"
)

// Utterance is a single text-to-speech request.
type Utterance struct {
	ID    string        `json:"id"`
	Text  string        `json:"text"`
	Rate  float64       `json:"rate"`
	Voice string        `json:"voice,omitempty"`
	Kind  UtteranceKind `json:"kind"`
}

// Synthesizer is a text-to-speech engine. Completion of each spoken utterance
// is reported back exactly once, by id, as an event.
type Synthesizer interface {
	Speak(u Utterance) error
	Cancel()
	Pause()
	Resume()
}
