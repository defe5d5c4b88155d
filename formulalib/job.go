// CompileJob ties one library entry to a parsed/compiled Formula and a
// stable id, grounded on _examples/launix-de-memcp/storage/fast_uuid.go's
// low-entropy uuid.UUID generation (this package has no hot-path reason
// to avoid crypto/rand the way storage's per-row id allocator does, but
// reuses the same library and UUID shape for the DOMAIN STACK table's
// formulalib.CompileJob.ID). CompileAll fans the library out across
// goroutines with diagctx.Go so a panic deep in the parser or JIT can be
// attributed to the job that caused it via diagctx.JobID, without
// threading a job parameter through the compiler's call stack.
package formulalib

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/launix-de/formula-compiler/formula"
	"github.com/launix-de/formula-compiler/parser"

	"github.com/launix-de/formula-compiler/diagctx"
)

// CompileJob is the result of parsing (and, if requested, compiling) one
// FormulaEntry: identifies a single compile/watch cycle in formulad's
// websocket protocol, per the DOMAIN STACK table.
type CompileJob struct {
	ID      uuid.UUID
	Entry   FormulaEntry
	Formula *formula.Formula
	Err     error
}

// CompileAll parses every entry in entries against opts, compiling each
// resulting Formula's native code too when compile is true. Jobs run
// concurrently (one diagctx.Go goroutine per entry); the returned slice
// preserves entries' order.
func CompileAll(entries []FormulaEntry, opts parser.Options, compile bool) []*CompileJob {
	jobs := make([]*CompileJob, len(entries))
	var wg sync.WaitGroup
	wg.Add(len(entries))
	for i, e := range entries {
		i, e := i, e
		job := &CompileJob{ID: uuid.New(), Entry: e}
		jobs[i] = job
		diagctx.Go(func() {
			defer wg.Done()
			diagctx.WithJobID(job.ID.String(), func() {
				job.Err = runJob(job, opts, compile)
			})
		})
	}
	wg.Wait()
	return jobs
}

func runJob(job *CompileJob, opts parser.Options, compile bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formulalib: job %s (%s) panicked: %v", diagctx.JobID(), job.Entry.Name, r)
		}
	}()

	p := parser.New(job.Entry.Body, opts)
	sections := p.Parse()
	if !p.Ok() {
		return fmt.Errorf("formulalib: job %s (%s): %d parse error(s)", diagctx.JobID(), job.Entry.Name, len(p.Errors()))
	}

	job.Formula = formula.New(sections)
	if compile {
		if err := job.Formula.Compile(); err != nil {
			return fmt.Errorf("formulalib: job %s (%s): %w", diagctx.JobID(), job.Entry.Name, err)
		}
	}
	return nil
}
