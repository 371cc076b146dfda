package service

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes read-modify-write cycles on one job record.
// Start, webhook and status handlers all patch the same record; the
// per-project lock makes concurrent patches deterministic within this
// process. It is striped so memory stays bounded.
type keyedMutex struct {
	stripes [64]sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	mu.Lock()
	return mu
}
