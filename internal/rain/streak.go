package rain

// Sink is the character grid the rain draws on.
// Flushing to the physical terminal is the caller's job.
type Sink interface {
	SetGlyph(row, col int, g Glyph)
	Size() (width, height int)
}

// Rand is the randomness a scene draws from. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// Streak is one falling trail of text in a column.
// text is laid out once at construction and never written afterwards;
// only the illuminated window (head-tail-1, head] moves.
type Streak struct {
	x    int
	head int
	tail int
	text Text
}

// NewStreak lays out messages from q into a buffer of exactly height glyphs.
//
// The first message starts at a random offset in [-(len)+1, maxPadding]:
// negative offsets scroll it partly off the top, positive ones prepend blank
// rows. Further messages follow after gaps of [1, maxPadding) blank rows until
// the buffer is full; the last one is truncated. A maxPadding of 0 disables
// both the offset and the gaps. An empty queue yields a blank streak.
//
// Every popped message is recycled exactly once, after the buffer is laid
// out, so one streak never repeats a message it already holds.
func NewStreak(q *Queue, x, tail, height, maxPadding int, rng Rand) *Streak {
	if height < 0 {
		height = 0
	}
	if maxPadding < 0 {
		maxPadding = 0
	}
	l := layout{buf: make(Text, 0, height), height: height}
	s := &Streak{x: x, tail: tail}

	var popped []Message
	defer func() {
		for _, m := range popped {
			q.Recycle(m)
		}
	}()

	msg, ok := q.Pop()
	if !ok {
		l.fill()
		s.text = l.buf
		return s
	}
	popped = append(popped, msg)

	glyphs := msg.Render()
	offset := 0
	if maxPadding > 0 {
		lo := 1 - len(glyphs)
		offset = lo + rng.IntN(maxPadding-lo+1)
	}
	if offset > height {
		offset = height
	}
	if offset < 0 {
		glyphs = glyphs[-offset:]
	} else {
		l.blank(offset)
	}
	l.copy(glyphs)

	for !l.full() {
		l.blank(gap(maxPadding, rng))
		if l.full() {
			break
		}
		msg, ok = q.Pop()
		if !ok {
			l.fill()
			break
		}
		popped = append(popped, msg)
		l.copy(msg.Render())
	}

	s.text = l.buf
	return s
}

// gap draws an inter-message gap in [1, maxPadding)
func gap(maxPadding int, rng Rand) int {
	switch {
	case maxPadding <= 0:
		return 0
	case maxPadding == 1:
		return 1
	default:
		return 1 + rng.IntN(maxPadding-1)
	}
}

// layout fills a fixed-capacity glyph buffer without ever overflowing it
type layout struct {
	buf    Text
	height int
}

func (l *layout) full() bool { return len(l.buf) >= l.height }

func (l *layout) blank(n int) {
	for i := 0; i < n && !l.full(); i++ {
		l.buf = append(l.buf, Glyph{Rune: ' ', Style: Style{Tone: ToneBackground}})
	}
}

func (l *layout) fill() { l.blank(l.height - len(l.buf)) }

func (l *layout) copy(t Text) {
	if room := l.height - len(l.buf); len(t) > room {
		t = t[:room]
	}
	l.buf = append(l.buf, t...)
}

// X is the streak's fixed column
func (s *Streak) X() int { return s.x }

// Head is the row of the leading glyph
func (s *Streak) Head() int { return s.head }

// Tail is how many rows behind the head stay lit
func (s *Streak) Tail() int { return s.tail }

// Text returns a copy of the laid-out buffer
func (s *Streak) Text() Text {
	out := make(Text, len(s.text))
	copy(out, s.text)
	return out
}

// Visible returns the inclusive row range currently lit, clipped to the
// buffer. ok is false when no row is on screen.
func (s *Streak) Visible() (lo, hi int, ok bool) {
	lo = s.head - s.tail
	hi = s.head
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.text)-1 {
		hi = len(s.text) - 1
	}
	return lo, hi, lo <= hi
}

// Render draws the lit window
func (s *Streak) Render(sink Sink) {
	lo, hi, ok := s.Visible()
	if !ok {
		return
	}
	for row := lo; row <= hi; row++ {
		sink.SetGlyph(row, s.x, s.text[row])
	}
}

// Derender erases the row just behind the lit window
func (s *Streak) Derender(sink Sink, bg Style) {
	row := s.head - s.tail - 1
	if row < 0 || row >= len(s.text) {
		return
	}
	sink.SetGlyph(row, s.x, Blank(bg))
}

// Advance moves the head down one row
func (s *Streak) Advance() { s.head++ }

// Finished reports whether the whole lit window has left a screen of the
// given height
func (s *Streak) Finished(height int) bool {
	return s.head-s.tail >= height
}

// TopSpace is the number of rows between the top of the lit window and the
// top of the screen
func (s *Streak) TopSpace() int {
	return s.head - s.tail + 1
}
