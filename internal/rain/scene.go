// Package rain lays out queued text messages into falling streaks and
// animates them on a character grid, one tick at a time.
//
// A Scene owns one Column per screen x position and a shared Queue of
// messages. Each call to Advance derenders, moves, retires and spawns streaks,
// then redraws them on the Sink it is given. Only the Queue is safe for
// concurrent use; everything else belongs to the goroutine calling Advance.
package rain

import (
	"math/rand/v2"
	"time"
)

// DefaultMaxPadding matches the padding bound the screensaver ships with
const DefaultMaxPadding = 15

// Options configures a Scene
type Options struct {
	// MaxPadding bounds the random blank rows around messages; 0 disables padding
	MaxPadding int
	Mode       QueueMode
	Background Style
	// Rand drives every random draw. Nil seeds a PCG from the clock.
	Rand Rand
}

// Scene is the top-level rain coordinator
type Scene struct {
	width      int
	height     int
	maxPadding int
	background Style
	queue      *Queue
	columns    []*Column
	rng        Rand
}

// New creates a scene of the given size. Non-positive sizes give an empty
// scene whose Advance does nothing.
func New(width, height int, opts Options) *Scene {
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	s := &Scene{
		maxPadding: max(opts.MaxPadding, 0),
		background: opts.Background,
		queue:      NewQueue(opts.Mode),
		rng:        rng,
	}
	s.Resize(width, height)
	return s
}

// NewForSink creates a scene sized to the sink's current dimensions
func NewForSink(sink Sink, opts Options) *Scene {
	w, h := sink.Size()
	return New(w, h, opts)
}

// Push queues messages for future streaks. Safe to call from any goroutine.
func (s *Scene) Push(msgs ...Message) {
	s.queue.Push(msgs...)
}

// Upsert refreshes queued messages by title. Safe to call from any goroutine.
func (s *Scene) Upsert(msgs ...Message) {
	s.queue.Upsert(msgs...)
}

// Queue exposes the shared message queue
func (s *Scene) Queue() *Queue {
	return s.queue
}

// Size returns the scene dimensions
func (s *Scene) Size() (width, height int) {
	return s.width, s.height
}

// Background is the style used to erase cells
func (s *Scene) Background() Style {
	return s.background
}

// MaxPadding returns the current padding bound
func (s *Scene) MaxPadding() int {
	return s.maxPadding
}

// SetMaxPadding changes the padding bound for streaks spawned from now on
func (s *Scene) SetMaxPadding(n int) {
	s.maxPadding = max(n, 0)
}

// Columns returns the columns left to right
func (s *Scene) Columns() []*Column {
	return s.columns
}

// Resize rebuilds the columns for new dimensions. Live streaks are dropped;
// queued messages are kept.
func (s *Scene) Resize(width, height int) {
	s.width = max(width, 0)
	s.height = max(height, 0)
	if s.height == 0 {
		s.width = 0
	}
	s.columns = make([]*Column, s.width)
	for x := range s.columns {
		s.columns[x] = newColumn(x)
	}
}

// Advance runs one full tick over every column, left to right, and draws the
// resulting frame on sink. The caller flushes sink afterwards.
func (s *Scene) Advance(sink Sink) {
	for _, c := range s.columns {
		c.step(s, sink)
	}
}

// Streaks counts live streaks across all columns
func (s *Scene) Streaks() int {
	n := 0
	for _, c := range s.columns {
		n += c.Len()
	}
	return n
}
