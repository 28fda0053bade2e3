package rain

// Tone selects the colour family a glyph is drawn with
type Tone uint8

const (
	ToneBackground Tone = iota
	ToneNeutral
	TonePositive
	ToneNegative
)

func (t Tone) String() string {
	switch t {
	case ToneNeutral:
		return "neutral"
	case TonePositive:
		return "positive"
	case ToneNegative:
		return "negative"
	default:
		return "background"
	}
}

// ParseTone maps a tone name back to its value. Unknown names are neutral.
func ParseTone(s string) Tone {
	switch s {
	case "background":
		return ToneBackground
	case "positive", "up", "green":
		return TonePositive
	case "negative", "down", "red":
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// Style is the attribute a glyph is drawn with
type Style struct {
	Tone Tone
	Bold bool
}

// Glyph is a single styled character cell
type Glyph struct {
	Rune  rune
	Style Style
}

// Blank returns the glyph used to erase a cell
func Blank(bg Style) Glyph {
	return Glyph{Rune: ' ', Style: bg}
}

// Text is an immutable run of glyphs rendered from a Message
type Text []Glyph

// String drops styling, mostly useful in tests and logs
func (t Text) String() string {
	rs := make([]rune, len(t))
	for i, g := range t {
		rs[i] = g.Rune
	}
	return string(rs)
}
