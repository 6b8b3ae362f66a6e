// Package command turns a recognized phrase into at most one Action.
//
// Routing walks the global rule table and then the table for the current
// view. The first rule that takes the phrase wins; a rule may also reject it
// outright, which ends routing with no action. Route has no side effects, so
// the caller can decide whether to consume the duplicate lock only after a
// phrase is known to mean something.
package command

import (
	"strings"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/nav"
	"voicereader/agent/internal/playback"
	"voicereader/agent/internal/speech"
)

type verdict int

const (
	pass verdict = iota
	take
	reject
)

type input struct {
	text     string
	nav      nav.State
	playback playback.Status
}

type rule struct {
	name  string
	apply func(r *Router, in input) (Action, verdict)
}

type Router struct {
	catalog *catalog.Catalog
}

func NewRouter(cat *catalog.Catalog) *Router {
	return &Router{catalog: cat}
}

// Route decides what transcript means given where the user is and what is
// playing. It reports false when the phrase is not a command here.
func (r *Router) Route(transcript string, st nav.State, ps playback.Status) (Action, bool) {
	text := speech.Normalize(transcript)
	if text == "" {
		return Action{}, false
	}
	in := input{text: text, nav: st, playback: ps}

	if a, v := r.walk(TierGlobal, globalRules, in); v != pass {
		return a, v == take
	}
	tier, rules := viewRules(st.View)
	a, v := r.walk(tier, rules, in)
	return a, v == take
}

func (r *Router) walk(tier Tier, rules []rule, in input) (Action, verdict) {
	for _, rl := range rules {
		a, v := rl.apply(r, in)
		switch v {
		case take:
			a.Tier = tier
			if a.Rule == "" {
				a.Rule = rl.name
			}
			return a, take
		case reject:
			return Action{}, reject
		}
	}
	return Action{}, pass
}

func viewRules(v nav.View) (Tier, []rule) {
	switch v {
	case nav.ViewSubject:
		return TierSubject, subjectRules
	case nav.ViewChapter:
		return TierChapter, chapterRules
	}
	return TierHome, homeRules
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func matchesKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var globalRules = []rule{
	{"stop", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "stop", "shut up") {
			return Action{}, pass
		}
		return Stop(TierGlobal), take
	}},
	{"pause", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "pause") {
			return Action{}, pass
		}
		return Pause(TierGlobal), take
	}},
	{"resume", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "resume", "continue") {
			return Action{}, pass
		}
		if in.playback.State != playback.Paused {
			return Action{}, reject
		}
		return Action{Kind: KindResume, Segment: in.playback.Segment}, take
	}},
	{"help", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "help", "what can i say") {
			return Action{}, pass
		}
		return Action{Kind: KindHelp, Announce: HelpText(in.nav.View)}, take
	}},
	{"back", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "go back", "back") {
			return Action{}, pass
		}
		a, ok := Back(TierGlobal, in.nav)
		if !ok {
			return Action{}, reject
		}
		return a, take
	}},
	{"home", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "home") {
			return Action{}, pass
		}
		return Home(TierGlobal), take
	}},
}

var homeRules = []rule{
	{"subject", func(r *Router, in input) (Action, verdict) {
		for _, sub := range r.catalog.Subjects() {
			if matchesKeyword(in.text, sub.Keywords) {
				return OpenSubject(TierHome, in.nav, sub), take
			}
		}
		return Action{}, reject
	}},
}

var subjectRules = []rule{
	{"chapter", func(_ *Router, in input) (Action, verdict) {
		if in.nav.Subject == nil {
			return Action{}, reject
		}
		for _, ch := range in.nav.Subject.Chapters {
			if matchesKeyword(in.text, ch.Keywords) {
				return openChapter(in, ch)
			}
		}
		return Action{}, pass
	}},
	{"ordinal", func(_ *Router, in input) (Action, verdict) {
		chapters := in.nav.Subject.Chapters
		switch {
		case containsAny(in.text, "first", "chapter one", "chapter 1") && len(chapters) > 0:
			return openChapter(in, chapters[0])
		case containsAny(in.text, "second", "chapter two", "chapter 2") && len(chapters) > 1:
			return openChapter(in, chapters[1])
		}
		return Action{}, reject
	}},
}

var chapterRules = []rule{
	{"play", func(_ *Router, in input) (Action, verdict) {
		ch := in.nav.Chapter
		if ch == nil || in.nav.Subject == nil {
			return Action{}, reject
		}
		if !containsAny(in.text, "read", "play", "start") {
			return Action{}, pass
		}
		switch {
		case containsAny(in.text, "summary"):
			return Play(TierChapter, ch, playback.SegmentSummary), take
		case containsAny(in.text, "question", "answer"):
			return Play(TierChapter, ch, playback.SegmentQA), take
		case containsAny(in.text, "read chapter", "play chapter", "full text"):
			return Play(TierChapter, ch, playback.SegmentContent), take
		}
		return Action{}, pass
	}},
	{"next", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "next chapter", "forward", "next") {
			return Action{}, pass
		}
		ch, ok := in.nav.Next()
		if !ok {
			return notice(TierChapter, "next:last", announceLastChapter), take
		}
		return openChapter(in, ch)
	}},
	{"previous", func(_ *Router, in input) (Action, verdict) {
		if !containsAny(in.text, "previous chapter", "previous") {
			return Action{}, pass
		}
		ch, ok := in.nav.Previous()
		if !ok {
			return notice(TierChapter, "previous:first", announceFirst), take
		}
		return openChapter(in, ch)
	}},
}

func openChapter(in input, ch *catalog.Chapter) (Action, verdict) {
	a, err := OpenChapter(TierSubject, in.nav, ch)
	if err != nil {
		return Action{}, reject
	}
	return a, take
}
