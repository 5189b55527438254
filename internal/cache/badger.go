// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package cache

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/metrics"
)

// deleteBatchSize caps deletions per transaction during pattern sweeps so a
// large sweep cannot exceed Badger's transaction size limit.
const deleteBatchSize = 1000

// BadgerStore implements Store on a Badger key-value database. Entries use
// Badger's native TTL; expired keys are invisible to reads and reclaimed by
// value-log GC.
//
// All operations run through a circuit breaker. When the backend misbehaves
// the breaker opens and operations fail fast; the Cache wrapper above turns
// those failures into misses, so a broken cache slows the service down but
// never takes it down.
type BadgerStore struct {
	db *badger.DB
	cb *gobreaker.CircuitBreaker[interface{}]
}

// NewBadgerStore opens the Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return newBadgerStore(opts)
}

// NewInMemoryBadgerStore opens an in-memory Badger database. Used by tests
// and ephemeral deployments.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return newBadgerStore(opts)
}

func newBadgerStore(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", opts.Dir, err)
	}

	cbName := "cache-badger"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		// Opens after 50% failures with at least 10 requests in the window.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Warn().Str("from", fromStr).Str("to", toStr).Msg("Cache circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BadgerStore{db: db, cb: cb}, nil
}

// getResult carries a read outcome through the breaker. A miss is a normal
// outcome, not a failure, so it must not count toward tripping the breaker.
type getResult struct {
	value []byte
	found bool
}

// Get reads one key. Absent and expired keys both report a miss.
func (s *BadgerStore) Get(key string) ([]byte, bool, error) {
	result, err := s.execute(func() (interface{}, error) {
		var value []byte
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			value, err = item.ValueCopy(nil)
			return err
		})
		if errors.Is(err, badger.ErrKeyNotFound) {
			return getResult{}, nil
		}
		if err != nil {
			return nil, err
		}
		return getResult{value: value, found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := result.(getResult)
	return res.value, res.found, nil
}

// Put stores one key with a TTL.
func (s *BadgerStore) Put(key string, value []byte, ttl time.Duration) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.db.Update(func(txn *badger.Txn) error {
			entry := badger.NewEntry([]byte(key), value)
			if ttl > 0 {
				entry = entry.WithTTL(ttl)
			}
			return txn.SetEntry(entry)
		})
	})
	return err
}

// Delete removes one key. Deleting an absent key succeeds.
func (s *BadgerStore) Delete(key string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.db.Update(func(txn *badger.Txn) error {
			err := txn.Delete([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		})
	})
	return err
}

// DeleteByPattern removes every key containing pattern as a substring and
// returns the count removed. The key space is scanned without value
// prefetch, so sweeps stay cheap even with large payloads.
func (s *BadgerStore) DeleteByPattern(pattern string) (int, error) {
	result, err := s.execute(func() (interface{}, error) {
		matches, err := s.scanKeys(pattern)
		if err != nil {
			return 0, err
		}

		removed := 0
		for start := 0; start < len(matches); start += deleteBatchSize {
			end := start + deleteBatchSize
			if end > len(matches) {
				end = len(matches)
			}
			batch := matches[start:end]

			err := s.db.Update(func(txn *badger.Txn) error {
				for _, key := range batch {
					if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return removed, err
			}
			removed += len(batch)
		}
		return removed, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// scanKeys collects all keys containing pattern.
func (s *BadgerStore) scanKeys(pattern string) ([][]byte, error) {
	var matches [][]byte
	needle := []byte(pattern)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Contains(key, needle) {
				matches = append(matches, key)
			}
		}
		return nil
	})
	return matches, err
}

// EntryCount reports the number of live keys in the store. Expired entries
// are invisible to the iterator and do not count.
func (s *BadgerStore) EntryCount() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// RunGC runs one value-log garbage collection pass and refreshes the cache
// size gauge. Badger returns ErrNoRewrite when there is nothing to reclaim;
// that is not an error.
func (s *BadgerStore) RunGC() error {
	if count, err := s.EntryCount(); err == nil {
		metrics.CacheSize.Set(float64(count))
	}

	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close closes the Badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// execute runs an operation through the circuit breaker, recording rejection
// metrics for fast-failed calls.
func (s *BadgerStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues("cache-badger", "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues("cache-badger", "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues("cache-badger", "success").Inc()
	return result, nil
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
