package capability

import (
	"context"
	"time"
)

// Provider installs, detects, and removes items of one kind.
//
// IsInstalled must be read-only. When detection cannot be trusted it
// returns StatusUnknown together with the underlying error; callers
// treat Unknown as Absent for install decisions.
//
// Install must be idempotent: installing an already-present item is
// not an error. Remove undoes a prior Install and is used by
// rollback; removing an absent item is not an error.
type Provider interface {
	Kind() Kind
	IsInstalled(ctx context.Context, item Item) (Status, error)
	Install(ctx context.Context, item Item) error
	Remove(ctx context.Context, item Item) error
}

// Versioner is implemented by providers that can report the installed
// version of an item. The verifier uses it for minimum-version checks.
type Versioner interface {
	InstalledVersion(ctx context.Context, item Item) (string, error)
}

// EnsureInstalled applies the shared check-then-install policy for a
// single item: present items are skipped, absent and unknown items
// are installed.
func EnsureInstalled(ctx context.Context, p Provider, item Item) ItemResult {
	start := time.Now()
	res := ItemResult{Item: item}

	status, err := p.IsInstalled(ctx, item)
	res.Status = status
	if err != nil {
		// Detection failure is not fatal: fall through to install
		// with the uncertainty recorded.
		res.Status = StatusUnknown
	}
	if status == StatusPresent && err == nil {
		res.Outcome = OutcomeSkipped
		res.Duration = time.Since(start)
		return res
	}

	if err := p.Install(ctx, item); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	res.Outcome = OutcomeInstalled
	res.Duration = time.Since(start)
	return res
}

// EnsureRemoved removes a single item, tolerating items that were
// never installed.
func EnsureRemoved(ctx context.Context, p Provider, item Item) ItemResult {
	start := time.Now()
	res := ItemResult{Item: item}

	status, err := p.IsInstalled(ctx, item)
	res.Status = status
	if err == nil && status == StatusAbsent {
		res.Outcome = OutcomeSkipped
		res.Duration = time.Since(start)
		return res
	}

	if err := p.Remove(ctx, item); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	res.Outcome = OutcomeRemoved
	res.Duration = time.Since(start)
	return res
}
