package sink

import (
	"path/filepath"
	"sync"

	"github.com/fluhus/gostuff/sets"
	"github.com/fluhus/gostuff/snm"
	"github.com/fluhus/ngstream/common"
	"golang.org/x/exp/maps"
)

// Paths held by open sinks in this process.
var (
	claimed   = sets.Set[string]{}
	claimedMu sync.Mutex
)

// claim registers path as owned by an open sink. Returns the key to release.
func claim(path string) (string, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = filepath.Clean(path)
	}
	claimedMu.Lock()
	defer claimedMu.Unlock()
	if claimed.Has(key) {
		return "", common.IOError(nil, "output %q is in use by another session", path)
	}
	claimed.Add(key)
	return key, nil
}

func release(key string) {
	if key == "" {
		return
	}
	claimedMu.Lock()
	delete(claimed, key)
	claimedMu.Unlock()
}

// InUse returns the sorted paths currently held by open sinks.
func InUse() []string {
	claimedMu.Lock()
	defer claimedMu.Unlock()
	return snm.Sorted(maps.Keys(claimed))
}
