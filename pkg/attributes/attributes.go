// Package attributes generates the short answer texts agents type into the
// game's suggestion input.
package attributes

import (
	"fmt"
	"math/rand"
	"sync"
)

var (
	traits = []string{
		"suspiciously", "wildly", "quietly", "extremely", "secretly",
		"famously", "barely", "proudly", "oddly", "heroically",
	}
	qualities = []string{
		"sparkly", "grumpy", "fluffy", "loud", "ancient",
		"sticky", "invisible", "tiny", "dramatic", "caffeinated",
	}
	things = []string{
		"banana", "wizard", "teapot", "penguin", "volcano",
		"sandwich", "robot", "cactus", "pirate", "umbrella",
	}
)

// Generator produces attribute strings. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator. Equal seeds produce equal sequences.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Next returns an attribute for agent's answer in round.
func (g *Generator) Next(agent string, round int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := traits[g.rng.Intn(len(traits))]
	q := qualities[g.rng.Intn(len(qualities))]
	n := things[g.rng.Intn(len(things))]
	return fmt.Sprintf("%s %s %s (%s r%d)", t, q, n, agent, round)
}
