// Package diagctx threads a diagnostic job id through deeply recursive
// compile/interpret calls without an explicit context.Context parameter
// on every visitor method, grounded on
// _examples/launix-de-memcp/storage/compute.go's and storage/partition.go's
// use of gls.Go to fan work out across goroutines. The teacher only calls
// gls.Go (no SetValues/GetValue pairing, so its goroutine-local value is
// never actually read back); this package completes that pattern with a
// real ContextManager so formulalib's compile pipeline can log which
// library entry a panic or diagnostic came from from inside code that
// has no job-aware parameter to receive it.
package diagctx

import "github.com/jtolds/gls"

var mgr = gls.NewContextManager()

const jobIDKey = "formula-compiler.job-id"

// Go runs fn in a new goroutine that inherits the calling goroutine's
// diagnostic context, mirroring storage/compute.go's gls.Go(...) calls.
func Go(fn func()) {
	gls.Go(fn)
}

// WithJobID runs fn with id bound as the active job id for the duration
// of the call (and any gls.Go goroutines fn spawns).
func WithJobID(id string, fn func()) {
	mgr.SetValues(gls.Values{jobIDKey: id}, fn)
}

// JobID returns the job id bound by the innermost enclosing WithJobID
// call on this goroutine's ancestry, or "" if none is set.
func JobID() string {
	v, ok := mgr.GetValue(jobIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
