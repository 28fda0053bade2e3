package rain

import "unicode/utf8"

// Message is one piece of content carried by the rain.
// Title is drawn bold, Body plain, both in Tone.
type Message struct {
	Title string
	Body  string
	Tone  Tone
}

// Len is the number of glyphs the message renders to
func (m Message) Len() int {
	return utf8.RuneCountInString(m.Title) + utf8.RuneCountInString(m.Body)
}

// Render converts the message into glyphs, one per rune
func (m Message) Render() Text {
	out := make(Text, 0, m.Len())
	bold := Style{Tone: m.Tone, Bold: true}
	for _, r := range m.Title {
		out = append(out, Glyph{Rune: r, Style: bold})
	}
	plain := Style{Tone: m.Tone}
	for _, r := range m.Body {
		out = append(out, Glyph{Rune: r, Style: plain})
	}
	return out
}
