package speech

import "strings"

// Voice describes a synthesizer voice offered by the engine.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// SelectVoice prefers a female voice for lang, then any voice for lang, then
// the first voice offered. It reports false only when voices is empty.
func SelectVoice(voices []Voice, lang string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	lang = strings.ToLower(lang)
	var regional *Voice
	for i := range voices {
		v := &voices[i]
		if !strings.Contains(strings.ToLower(v.Lang), lang) {
			continue
		}
		if strings.Contains(v.Name, "Female") {
			return *v, true
		}
		if regional == nil {
			regional = v
		}
	}
	if regional != nil {
		return *regional, true
	}
	return voices[0], true
}
