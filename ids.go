package layers

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity ids are ULIDs: lexicographically sortable by creation time, which
// keeps debug dumps and history labels readable. A single monotonic
// entropy source is shared so ids created within the same millisecond
// still sort in creation order.
var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newID returns a fresh unique id string.
func newID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Now(), idEntropy).String()
}
