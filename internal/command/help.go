package command

import "voicereader/agent/internal/nav"

// HelpText is the spoken list of commands available in a view.
func HelpText(v nav.View) string {
	text := "Voice commands: "
	switch v {
	case nav.ViewHome:
		text += "Say a subject name like Science, History, or English. You can also say Stop listening."
	case nav.ViewSubject:
		text += "Say Chapter 1, Chapter 2, or go back to return to subjects."
	case nav.ViewChapter:
		text += "Say Read Chapter, Read Summary, Read Questions, Pause, Stop, Next Chapter, or Go Back."
	}
	return text
}

// Hints is the short on-screen prompt for a view.
func Hints(v nav.View) string {
	switch v {
	case nav.ViewHome:
		return `"Science", "History", "English", "Help"`
	case nav.ViewSubject:
		return `"Chapter 1", "Chapter 2", "Go Back"`
	case nav.ViewChapter:
		return `"Read Chapter", "Read Questions", "Next Chapter", "Go Back", "Stop"`
	}
	return ""
}
