// Package nav models the user's position in the content hierarchy.
//
// State is a value: every transition returns a new State and leaves the
// receiver untouched, so callers only ever replace their copy wholesale.
package nav

import (
	"errors"
	"fmt"

	"voicereader/agent/internal/catalog"
)

var ErrInvariant = errors.New("nav: invariant violated")

type View int

const (
	ViewHome View = iota
	ViewSubject
	ViewChapter
)

func (v View) String() string {
	switch v {
	case ViewHome:
		return "home"
	case ViewSubject:
		return "subject"
	case ViewChapter:
		return "chapter"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// ParseView is the inverse of View.String.
func ParseView(s string) (View, bool) {
	switch s {
	case "home", "":
		return ViewHome, true
	case "subject":
		return ViewSubject, true
	case "chapter":
		return ViewChapter, true
	}
	return ViewHome, false
}

// State is the current view plus the selected subject and chapter.
type State struct {
	View    View
	Subject *catalog.Subject
	Chapter *catalog.Chapter
}

// Home is the initial state.
func Home() State { return State{View: ViewHome} }

// OpenSubject selects a subject and clears any chapter.
func (s State) OpenSubject(sub *catalog.Subject) State {
	return State{View: ViewSubject, Subject: sub}
}

// OpenChapter selects a chapter and its owning subject.
func (s State) OpenChapter(ch *catalog.Chapter) (State, error) {
	if ch == nil || ch.Subject() == nil {
		return s, fmt.Errorf("open detached chapter: %w", ErrInvariant)
	}
	return State{View: ViewChapter, Subject: ch.Subject(), Chapter: ch}, nil
}

// Back pops one level. It reports false at Home, where there is nowhere to go.
func (s State) Back() (State, bool) {
	switch s.View {
	case ViewChapter:
		return State{View: ViewSubject, Subject: s.Subject}, true
	case ViewSubject:
		return Home(), true
	}
	return s, false
}

// Next returns the chapter after the selected one.
func (s State) Next() (*catalog.Chapter, bool) {
	return s.sibling(+1)
}

// Previous returns the chapter before the selected one.
func (s State) Previous() (*catalog.Chapter, bool) {
	return s.sibling(-1)
}

func (s State) sibling(delta int) (*catalog.Chapter, bool) {
	if s.View != ViewChapter || s.Subject == nil {
		return nil, false
	}
	i := s.Subject.ChapterIndex(s.Chapter)
	if i < 0 {
		return nil, false
	}
	j := i + delta
	if j < 0 || j >= len(s.Subject.Chapters) {
		return nil, false
	}
	return s.Subject.Chapters[j], true
}

// Validate checks the view/selection invariants.
func (s State) Validate() error {
	switch s.View {
	case ViewHome:
		return nil
	case ViewSubject:
		if s.Subject == nil {
			return fmt.Errorf("subject view without subject: %w", ErrInvariant)
		}
		return nil
	case ViewChapter:
		if s.Subject == nil || s.Chapter == nil {
			return fmt.Errorf("chapter view without selection: %w", ErrInvariant)
		}
		if s.Subject.ChapterIndex(s.Chapter) < 0 {
			return fmt.Errorf("chapter %s not in subject %s: %w", s.Chapter.ID, s.Subject.ID, ErrInvariant)
		}
		return nil
	}
	return fmt.Errorf("unknown view %d: %w", int(s.View), ErrInvariant)
}

// SubjectID and ChapterID are nil-safe accessors for logs and snapshots.
func (s State) SubjectID() string {
	if s.Subject == nil {
		return ""
	}
	return s.Subject.ID
}

func (s State) ChapterID() string {
	if s.Chapter == nil {
		return ""
	}
	return s.Chapter.ID
}
