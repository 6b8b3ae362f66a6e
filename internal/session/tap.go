package session

import (
	"context"
	"errors"
	"fmt"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/command"
	"voicereader/agent/internal/nav"
	"voicereader/agent/internal/playback"
)

var (
	ErrUnknownTap = errors.New("session: unknown tap action")
	ErrNoChapter  = errors.New("session: no chapter open")
	ErrBadSegment = errors.New("session: unknown segment")
)

type TapKind string

const (
	TapSelectSubject   TapKind = "select_subject"
	TapSelectChapter   TapKind = "select_chapter"
	TapPlay            TapKind = "play"
	TapPause           TapKind = "pause"
	TapStop            TapKind = "stop"
	TapBack            TapKind = "back"
	TapHome            TapKind = "home"
	TapToggleListening TapKind = "toggle_listening"
)

// Tap is a touch action. Taps go through the same transitions as voice
// commands but never touch the duplicate lock.
type Tap struct {
	Action    TapKind `json:"action" validate:"required,oneof=select_subject select_chapter play pause stop back home toggle_listening"`
	SubjectID string  `json:"subject_id,omitempty"`
	ChapterID string  `json:"chapter_id,omitempty"`
	Segment   string  `json:"segment,omitempty" validate:"omitempty,oneof=content summary qa"`
}

// Tap applies a touch action on the loop.
func (s *Session) Tap(ctx context.Context, t Tap) error {
	return s.do(ctx, func() error { return s.tap(t) })
}

func (s *Session) tap(t Tap) error {
	switch t.Action {
	case TapSelectSubject:
		sub, err := s.catalog.Subject(t.SubjectID)
		if err != nil {
			return err
		}
		s.apply(command.OpenSubject(command.TierTouch, s.nav, sub), "touch", "")
	case TapSelectChapter:
		ch, err := s.findChapter(t.SubjectID, t.ChapterID)
		if err != nil {
			return err
		}
		a, err := command.OpenChapter(command.TierTouch, s.nav, ch)
		if err != nil {
			return err
		}
		s.apply(a, "touch", "")
	case TapPlay:
		if s.nav.View != nav.ViewChapter || s.nav.Chapter == nil {
			return ErrNoChapter
		}
		seg, ok := playback.ParseSegment(t.Segment)
		if !ok {
			return fmt.Errorf("%q: %w", t.Segment, ErrBadSegment)
		}
		s.apply(command.Play(command.TierTouch, s.nav.Chapter, seg), "touch", "")
	case TapPause:
		s.apply(command.Pause(command.TierTouch), "touch", "")
	case TapStop:
		a := command.Stop(command.TierTouch)
		a.Announce = ""
		s.apply(a, "touch", "")
	case TapBack:
		a, ok := command.Back(command.TierTouch, s.nav)
		if !ok {
			return nil
		}
		s.apply(a, "touch", "")
	case TapHome:
		s.apply(command.Home(command.TierTouch), "touch", "")
	case TapToggleListening:
		return s.setListening(!s.listen.Listening())
	default:
		return fmt.Errorf("%q: %w", t.Action, ErrUnknownTap)
	}
	return nil
}

// findChapter prefers the given subject, then the open one, then any subject.
func (s *Session) findChapter(subjectID, chapterID string) (*catalog.Chapter, error) {
	if subjectID != "" {
		return s.catalog.Chapter(subjectID, chapterID)
	}
	if s.nav.Subject != nil {
		if ch, err := s.nav.Subject.Chapter(chapterID); err == nil {
			return ch, nil
		}
	}
	return s.catalog.FindChapter(chapterID)
}
