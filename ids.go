package workflow

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator hands out ids for nodes and edges that arrive without one.
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator generates random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() string { return uuid.NewString() }

// SequenceGenerator generates Prefix_1, Prefix_2, ... in order.
// It is safe for concurrent use.
type SequenceGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewSequenceGenerator returns a generator starting after start.
func NewSequenceGenerator(prefix string, start int) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix, n: start}
}

func (g *SequenceGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.Prefix + "_" + strconv.Itoa(g.n)
}
