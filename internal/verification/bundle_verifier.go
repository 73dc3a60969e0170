package verification

import (
	"context"
	"errors"
	"fmt"

	"crop-stress-lab/internal/cache"
	"crop-stress-lab/internal/domain"
)

// ErrBundleNotFound is returned when no bundle is stored for an experiment.
var ErrBundleNotFound = errors.New("stored bundle not found")

// ComputeFunc recomputes the bundle of an experiment without touching the cache.
type ComputeFunc func(ctx context.Context, exp domain.Experiment) (*domain.StressBundle, error)

// BundleVerifier implements Verifier against a bundle cache.
type BundleVerifier struct {
	store   cache.Store
	compute ComputeFunc
}

// NewBundleVerifier creates a verifier reading stored bundles from store.
func NewBundleVerifier(store cache.Store, compute ComputeFunc) *BundleVerifier {
	return &BundleVerifier{store: store, compute: compute}
}

// Verify loads the stored bundle of exp, recomputes it and compares both.
func (v *BundleVerifier) Verify(ctx context.Context, exp domain.Experiment) (*VerificationResult, error) {
	stored, err := v.store.LoadBundle(cache.BundleKey(exp))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, exp.Name)
		}
		return nil, err
	}

	recomputed, err := v.compute(ctx, exp)
	if err != nil {
		return nil, fmt.Errorf("recompute %s: %w", exp.Name, err)
	}

	return CompareBundles(stored, recomputed), nil
}

var _ Verifier = (*BundleVerifier)(nil)
