package dispatcher

import (
	"context"
	"sync"

	"github.com/garyjia/expense-reimbursement/internal/domain/event"
)

// HandlerResult is the outcome of one best-effort handler
type HandlerResult struct {
	HandlerName string
	EventType   event.Type
	Err         error
}

// Receipt is the side-effect channel of an async dispatch. Its results are
// reported separately and never become the caller's error.
type Receipt struct {
	EventID string

	results []HandlerResult
	done    chan struct{}
	once    sync.Once
}

func newReceipt(eventID string, n int) *Receipt {
	return &Receipt{
		EventID: eventID,
		results: make([]HandlerResult, n),
		done:    make(chan struct{}),
	}
}

func (r *Receipt) finish() {
	r.once.Do(func() { close(r.done) })
}

// Done is closed once every handler has returned
func (r *Receipt) Done() <-chan struct{} {
	if r == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

// Wait blocks until all handlers finish or ctx ends
func (r *Receipt) Wait(ctx context.Context) ([]HandlerResult, error) {
	if r == nil {
		return nil, nil
	}
	select {
	case <-r.done:
		out := make([]HandlerResult, len(r.results))
		copy(out, r.results)
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Failures waits like Wait and keeps only the failed results
func (r *Receipt) Failures(ctx context.Context) ([]HandlerResult, error) {
	results, err := r.Wait(ctx)
	if err != nil {
		return nil, err
	}
	var failed []HandlerResult
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed, nil
}
