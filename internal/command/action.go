package command

import (
	"fmt"
	"strings"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/nav"
	"voicereader/agent/internal/playback"
)

type Kind int

const (
	KindStop Kind = iota
	KindPause
	KindResume
	KindHelp
	KindBack
	KindHome
	KindOpenSubject
	KindOpenChapter
	KindPlay
	// KindNotice only speaks its announcement.
	KindNotice
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "stop"
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindHelp:
		return "help"
	case KindBack:
		return "back"
	case KindHome:
		return "home"
	case KindOpenSubject:
		return "open_subject"
	case KindOpenChapter:
		return "open_chapter"
	case KindPlay:
		return "play"
	case KindNotice:
		return "notice"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Navigates reports whether the action replaces the navigation state.
func (k Kind) Navigates() bool {
	switch k {
	case KindBack, KindHome, KindOpenSubject, KindOpenChapter:
		return true
	}
	return false
}

// Tier is the rule table that produced an action.
type Tier int

const (
	TierGlobal Tier = iota
	TierHome
	TierSubject
	TierChapter
	TierTouch
)

func (t Tier) String() string {
	switch t {
	case TierGlobal:
		return "global"
	case TierHome:
		return "home"
	case TierSubject:
		return "subject"
	case TierChapter:
		return "chapter"
	case TierTouch:
		return "touch"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Action is a decided command. Next is meaningful only when Kind.Navigates;
// Segment and Text only for KindPlay.
type Action struct {
	Kind     Kind
	Tier     Tier
	Rule     string
	Next     nav.State
	Segment  playback.Segment
	Text     string
	Announce string
}

const (
	announceStopped     = "Audio stopped."
	announceBackToList  = "Going back to chapters."
	announceHome        = "Going to home screen."
	announceLastChapter = "This is the last chapter in this subject."
	announceFirst       = "This is the first chapter."
	announceListening   = "Microphone on. I am listening."
)

// ListeningAnnouncement is spoken when the microphone is switched on.
func ListeningAnnouncement() string { return announceListening }

// Readout is the text read aloud for one segment of a chapter.
func Readout(ch *catalog.Chapter, seg playback.Segment) string {
	switch seg {
	case playback.SegmentContent:
		return ch.Content
	case playback.SegmentSummary:
		return "Summary. " + ch.Summary
	case playback.SegmentQA:
		parts := make([]string, 0, len(ch.QA))
		for i, qa := range ch.QA {
			parts = append(parts, fmt.Sprintf("Question %d. %s Answer. %s", i+1, qa.Question, qa.Answer))
		}
		return "Questions and Answers. " + strings.Join(parts, ". ")
	}
	return ""
}

func segmentAnnouncement(seg playback.Segment) string {
	switch seg {
	case playback.SegmentSummary:
		return "Reading summary."
	case playback.SegmentQA:
		return "Reading questions."
	case playback.SegmentContent:
		return "Reading chapter content."
	}
	return ""
}

// The constructors below are shared by the voice rules and touch input.

func Stop(tier Tier) Action {
	return Action{Kind: KindStop, Tier: tier, Rule: "stop", Announce: announceStopped}
}

func Pause(tier Tier) Action {
	return Action{Kind: KindPause, Tier: tier, Rule: "pause"}
}

func Home(tier Tier) Action {
	return Action{Kind: KindHome, Tier: tier, Rule: "home", Next: nav.Home(), Announce: announceHome}
}

// Back pops one level from st. It reports false at Home.
func Back(tier Tier, st nav.State) (Action, bool) {
	next, ok := st.Back()
	if !ok {
		return Action{}, false
	}
	text := announceHome
	if st.View == nav.ViewChapter {
		text = announceBackToList
	}
	return Action{Kind: KindBack, Tier: tier, Rule: "back", Next: next, Announce: text}, true
}

func OpenSubject(tier Tier, st nav.State, sub *catalog.Subject) Action {
	return Action{
		Kind:     KindOpenSubject,
		Tier:     tier,
		Rule:     "subject:" + sub.ID,
		Next:     st.OpenSubject(sub),
		Announce: fmt.Sprintf("Opened %s. Choose a chapter.", sub.Title),
	}
}

// OpenChapter fails only for a chapter detached from any subject.
func OpenChapter(tier Tier, st nav.State, ch *catalog.Chapter) (Action, error) {
	next, err := st.OpenChapter(ch)
	if err != nil {
		return Action{}, err
	}
	return Action{
		Kind:     KindOpenChapter,
		Tier:     tier,
		Rule:     "chapter:" + ch.ID,
		Next:     next,
		Announce: fmt.Sprintf("Opened %s. Say read chapter, or read summary to begin.", ch.Title),
	}, nil
}

func Play(tier Tier, ch *catalog.Chapter, seg playback.Segment) Action {
	return Action{
		Kind:     KindPlay,
		Tier:     tier,
		Rule:     "play:" + seg.String(),
		Segment:  seg,
		Text:     Readout(ch, seg),
		Announce: segmentAnnouncement(seg),
	}
}

func notice(tier Tier, rule, text string) Action {
	return Action{Kind: KindNotice, Tier: tier, Rule: rule, Announce: text}
}
