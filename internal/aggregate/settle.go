// Package aggregate builds coherent view models out of several independent
// service calls, tolerating individual failures: each sub-call either
// contributes its value or is replaced by its field's default, and no
// failing sub-call ever aborts the whole view.
package aggregate

import (
	"sync"

	"github.com/proplink/crm-client/internal/services"
)

// CallWithFallback runs fn and substitutes fallback when it fails. The
// fallback path is a first-class branch, not an exception handler, so it
// can be exercised directly in tests.
func CallWithFallback[T any](fn func() services.Result[T], fallback T) T {
	res := fn()
	if !res.Success {
		return fallback
	}
	return res.Data
}

// settleAll runs every task concurrently and waits for all of them.
// Tasks capture their own results; a failing task cannot cancel the
// batch, and no ordering is guaranteed among tasks.
func settleAll(tasks ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		go func(fn func()) {
			defer wg.Done()
			fn()
		}(task)
	}
	wg.Wait()
}

// Snapshot is the externally observable state of a loader.
type Snapshot[T any] struct {
	Data    T
	Loading bool
	// Err reflects only hard top-level failures (missing identifiers);
	// individual sub-call failures are absorbed into field defaults.
	Err error
}
