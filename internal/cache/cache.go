// Package cache stores response fields and stress bundles between runs,
// keyed by experiment name and configuration hash.
package cache

import (
	"errors"
	"fmt"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/idhash"
)

// ErrMiss is returned by a Store when an entry does not exist.
var ErrMiss = errors.New("cache miss")

// Key identifies one cache entry.
type Key struct {
	Name string // experiment name
	Hash string // configuration hash
}

// String renders the file-name prefix "<name>_<hash[:12]>".
func (k Key) String() string {
	return fmt.Sprintf("%s_%s", k.Name, idhash.Short(k.Hash))
}

// ResponseKey keys the response field of exp.
func ResponseKey(exp domain.Experiment) Key {
	return Key{Name: exp.Name, Hash: idhash.ComputeResponseHash(exp)}
}

// BundleKey keys the stress bundle of exp.
func BundleKey(exp domain.Experiment) Key {
	return Key{Name: exp.Name, Hash: idhash.ComputeExperimentHash(exp)}
}

// Store persists cache entries.
type Store interface {
	LoadResponse(key Key) (*domain.ResponseField, error)
	SaveResponse(key Key, r *domain.ResponseField) error
	LoadBundle(key Key) (*domain.StressBundle, error)
	SaveBundle(key Key, b *domain.StressBundle) error
}

// Policy controls GetOrCompute.
type Policy struct {
	Rewrite bool // ignore existing entries
	Save    bool // store computed values
}

// GetOrCompute loads an entry unless p.Rewrite is set, otherwise computes it
// and saves it when p.Save is set. hit reports whether the value was loaded.
func GetOrCompute[T any](p Policy, load func() (T, error), compute func() (T, error), save func(T) error) (v T, hit bool, err error) {
	if !p.Rewrite {
		v, err = load()
		if err == nil {
			return v, true, nil
		}
		if !errors.Is(err, ErrMiss) {
			return v, false, fmt.Errorf("failed to load cache entry: %w", err)
		}
	}

	v, err = compute()
	if err != nil {
		return v, false, err
	}
	if p.Save {
		if err := save(v); err != nil {
			return v, false, fmt.Errorf("failed to save cache entry: %w", err)
		}
	}
	return v, false, nil
}
