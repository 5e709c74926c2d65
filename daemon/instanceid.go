package daemon

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// entropyPool holds rand.Sources for ULID generation; reseeding a fresh
// source on every id is the expensive part, so sources are pooled.
var entropyPool = &sync.Pool{
	New: func() interface{} {
		return rand.NewSource(time.Now().UnixNano())
	},
}

// newInstanceID returns a lexically sortable ULID, used as a driver's
// internal instance id (distinct from its host-visible DRIVER_<n> name)
// for log correlation across a worker's lifetime.
func newInstanceID() string {
	entropy := entropyPool.Get().(rand.Source)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(entropy))
	entropyPool.Put(entropy)
	return strings.ToLower(id.String())
}
