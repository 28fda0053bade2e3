package rain

const (
	// SpawnGap is how far every streak's lit window must have moved below
	// the top of the screen before a column spawns another streak
	SpawnGap = 5
	// MinTail is the shortest tail a spawned streak gets
	MinTail = 5
)

// Column holds the streaks sharing one x position, oldest first
type Column struct {
	x       int
	streaks []*Streak
}

func newColumn(x int) *Column {
	return &Column{x: x}
}

// X is the column's screen position
func (c *Column) X() int { return c.x }

// Streaks returns the live streaks in insertion order
func (c *Column) Streaks() []*Streak {
	out := make([]*Streak, len(c.streaks))
	copy(out, c.streaks)
	return out
}

// Len is the number of live streaks
func (c *Column) Len() int { return len(c.streaks) }

// step runs one tick for the column: derender and advance every streak,
// drop finished ones, spawn at most one, then render.
func (c *Column) step(s *Scene, sink Sink) {
	for _, st := range c.streaks {
		st.Derender(sink, s.background)
		st.Advance()
	}

	c.retire(s.height, sink, s.background)

	if c.wantsSpawn() {
		c.spawn(s)
	}

	for _, st := range c.streaks {
		st.Render(sink)
	}
}

// retire drops finished streaks. The row they lit last is erased too,
// otherwise it would stay drawn once nothing derenders it.
func (c *Column) retire(height int, sink Sink, bg Style) {
	live := c.streaks[:0]
	for _, st := range c.streaks {
		if st.Finished(height) {
			st.Derender(sink, bg)
			continue
		}
		live = append(live, st)
	}
	for i := len(live); i < len(c.streaks); i++ {
		c.streaks[i] = nil
	}
	c.streaks = live
}

func (c *Column) wantsSpawn() bool {
	for _, st := range c.streaks {
		if st.TopSpace() <= SpawnGap {
			return false
		}
	}
	return true
}

func (c *Column) spawn(s *Scene) {
	tail := MinTail
	if hi := 2 * s.height; hi > MinTail {
		tail = MinTail + s.rng.IntN(hi-MinTail)
	}
	c.streaks = append(c.streaks, NewStreak(s.queue, c.x, tail, s.height, s.maxPadding, s.rng))
}
