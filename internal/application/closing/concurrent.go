package closing

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// processConcurrent procesa los sorteos con un worker pool. Los resultados
// conservan el orden de events.
func processConcurrent(
	ctx context.Context,
	events []domain.Event,
	workers int,
	fn func(ctx context.Context, eventID string) Result,
) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(events) {
		workers = len(events)
	}

	type work struct {
		idx     int
		eventID string
	}
	type done struct {
		idx int
		res Result
	}

	workCh := make(chan work, len(events))
	resultCh := make(chan done, len(events))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				resultCh <- done{idx: w.idx, res: fn(ctx, w.eventID)}
			}
		}()
	}

	for i, ev := range events {
		workCh <- work{idx: i, eventID: ev.ID}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, len(events))
	for d := range resultCh {
		results[d.idx] = d.res
	}

	slog.Debug("concurrent selection complete", "events", len(events), "workers", workers)
	return results
}

func newAuditID() string { return uuid.NewString() }
