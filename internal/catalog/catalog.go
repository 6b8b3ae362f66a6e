// Package catalog holds the read-only study content: subjects, their ordered
// chapters, and each chapter's content, summary and question/answer pairs.
//
// A Catalog is built once at startup and never mutated afterwards, so it can be
// shared freely between goroutines.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("catalog: not found")
	ErrDuplicate = errors.New("catalog: duplicate id")
)

// QAPair is one question with its answer.
type QAPair struct {
	Question string `yaml:"q" json:"question" validate:"required"`
	Answer   string `yaml:"a" json:"answer" validate:"required"`
}

// Chapter is a readable unit of a subject.
type Chapter struct {
	ID       string   `yaml:"id" json:"id" validate:"required"`
	Title    string   `yaml:"title" json:"title" validate:"required"`
	Keywords []string `yaml:"keywords" json:"keywords" validate:"required,min=1,dive,required"`
	Content  string   `yaml:"content" json:"content" validate:"required"`
	Summary  string   `yaml:"summary" json:"summary" validate:"required"`
	QA       []QAPair `yaml:"qa" json:"qa" validate:"dive"`

	subject *Subject
}

// Subject returns the subject the chapter belongs to.
func (c *Chapter) Subject() *Subject { return c.subject }

// Subject is a top-level entry of the catalog.
type Subject struct {
	ID          string     `yaml:"id" json:"id" validate:"required"`
	Title       string     `yaml:"title" json:"title" validate:"required"`
	Description string     `yaml:"description" json:"description"`
	Keywords    []string   `yaml:"keywords" json:"keywords" validate:"required,min=1,dive,required"`
	Chapters    []*Chapter `yaml:"chapters" json:"chapters" validate:"required,min=1,dive"`
}

// ChapterIndex returns the position of ch in the subject, or -1.
func (s *Subject) ChapterIndex(ch *Chapter) int {
	if ch == nil {
		return -1
	}
	for i, c := range s.Chapters {
		if c == ch {
			return i
		}
	}
	return -1
}

// Chapter looks up a chapter of this subject by id.
func (s *Subject) Chapter(id string) (*Chapter, error) {
	for _, c := range s.Chapters {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("chapter %q in subject %q: %w", id, s.ID, ErrNotFound)
}

// Catalog is the loaded, immutable content tree.
type Catalog struct {
	subjects []*Subject
	byID     map[string]*Subject
}

// New links the chapters to their subjects, lowercases keywords and checks id
// uniqueness. Subject ids are unique across the catalog; chapter ids are unique
// within their subject.
func New(subjects []*Subject) (*Catalog, error) {
	c := &Catalog{
		subjects: subjects,
		byID:     make(map[string]*Subject, len(subjects)),
	}
	for _, s := range subjects {
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("subject %q: %w", s.ID, ErrDuplicate)
		}
		c.byID[s.ID] = s
		s.Keywords = normalizeKeywords(s.Keywords)

		seen := make(map[string]bool, len(s.Chapters))
		for _, ch := range s.Chapters {
			if seen[ch.ID] {
				return nil, fmt.Errorf("chapter %q in subject %q: %w", ch.ID, s.ID, ErrDuplicate)
			}
			seen[ch.ID] = true
			ch.subject = s
			ch.Keywords = normalizeKeywords(ch.Keywords)
		}
	}
	return c, nil
}

// Subjects returns the subjects in catalog order.
func (c *Catalog) Subjects() []*Subject {
	out := make([]*Subject, len(c.subjects))
	copy(out, c.subjects)
	return out
}

func (c *Catalog) Subject(id string) (*Subject, error) {
	s, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("subject %q: %w", id, ErrNotFound)
	}
	return s, nil
}

func (c *Catalog) Chapter(subjectID, chapterID string) (*Chapter, error) {
	s, err := c.Subject(subjectID)
	if err != nil {
		return nil, err
	}
	return s.Chapter(chapterID)
}

// FindChapter searches every subject for a chapter id. Chapter ids may repeat
// across subjects; the first in catalog order wins.
func (c *Catalog) FindChapter(chapterID string) (*Chapter, error) {
	for _, s := range c.subjects {
		if ch, err := s.Chapter(chapterID); err == nil {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("chapter %q: %w", chapterID, ErrNotFound)
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
