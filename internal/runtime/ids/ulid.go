// Package ids generates the identifiers stamped onto call tickets and event
// messages.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// generator hands out strictly increasing ULIDs. Monotonic entropy only
// orders IDs drawn from the same source, so every caller goes through the
// shared package-level instance.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) next() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

var shared = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}

// CorrelationID returns a time-sortable, process-unique identifier encoded
// as a 26-character string. Within one process the IDs are strictly
// increasing, which lets pending-call maps and logs sort by issue order.
func CorrelationID() string {
	return shared.next().String()
}
