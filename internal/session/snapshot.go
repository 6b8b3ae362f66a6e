package session

import (
	"voicereader/agent/internal/command"
)

// Snapshot is the client-visible state of the session.
type Snapshot struct {
	SessionID      string `json:"session_id"`
	View           string `json:"view"`
	SubjectID      string `json:"subject_id,omitempty"`
	SubjectTitle   string `json:"subject_title,omitempty"`
	ChapterID      string `json:"chapter_id,omitempty"`
	ChapterTitle   string `json:"chapter_title,omitempty"`
	Playback       string `json:"playback"`
	Segment        string `json:"segment,omitempty"`
	Listening      bool   `json:"listening"`
	VoiceSupported bool   `json:"voice_supported"`
	Voice          string `json:"voice,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Feedback       string `json:"feedback,omitempty"`
	Hints          string `json:"hints"`
}

func (s *Session) snapshot() Snapshot {
	ps := s.player.Status()
	snap := Snapshot{
		SessionID:      s.id,
		View:           s.nav.View.String(),
		SubjectID:      s.nav.SubjectID(),
		ChapterID:      s.nav.ChapterID(),
		Playback:       ps.State.String(),
		Segment:        ps.Segment.String(),
		Listening:      s.listen.Listening(),
		VoiceSupported: s.voiceSupported,
		Voice:          s.voice,
		Transcript:     s.transcript,
		Feedback:       s.feedback,
		Hints:          command.Hints(s.nav.View),
	}
	if s.nav.Subject != nil {
		snap.SubjectTitle = s.nav.Subject.Title
	}
	if s.nav.Chapter != nil {
		snap.ChapterTitle = s.nav.Chapter.Title
	}
	return snap
}
