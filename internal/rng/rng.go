// Package rng derives deterministic, schedule-independent random number
// generators for the photon transport engine's worker pool (§5, §9).
package rng

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/davecgh/go-spew/spew"
)

// fingerprint returns a stable hash key for an arbitrary Go value,
// adapted from the teacher's internal/hash package: gob-encode the
// value into an FNV-128a hash, falling back to a spew dump for values
// gob cannot encode (e.g. structs containing NaN, which gob rejects).
func fingerprint(parts ...interface{}) string {
	h := fnv.New128a()
	enc := gob.NewEncoder(h)
	if err := enc.Encode(parts); err == nil {
		return fmt.Sprintf("%x", h.Sum(nil))
	}
	h = fnv.New128a()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", parts)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// seedFromFingerprint folds a fingerprint string down to an int64 seed.
func seedFromFingerprint(fp string) int64 {
	h := fnv.New64a()
	h.Write([]byte(fp))
	return int64(h.Sum64())
}

// WorkerSource returns a *rand.Rand seeded deterministically from the
// master seed, worker id, and iteration index, so that results for a
// given (vertex count, master seed, thread count, stable vertex-to-thread
// mapping) are reproducible independent of goroutine scheduling order.
func WorkerSource(masterSeed int64, workerID, iteration int) *rand.Rand {
	fp := fingerprint(masterSeed, workerID, iteration)
	return rand.New(rand.NewSource(seedFromFingerprint(fp)))
}
