package cheque

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// defaultBatchConcurrency limits how many cheques a batch processes at once
const defaultBatchConcurrency = 4

// SetBatchConcurrency sets how many batch files are processed at once.
// Values below one are ignored.
func (s *Service) SetBatchConcurrency(n int) {
	if n >= 1 {
		s.concurrency = n
	}
}

// ProcessBatch processes every upload independently. A failed file never
// stops the others; items come back in upload order.
func (s *Service) ProcessBatch(ctx context.Context, uploads []Upload) []BatchItem {
	items := make([]BatchItem, len(uploads))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range uploads {
		g.Go(func() error {
			item := BatchItem{Filename: u.Filename}
			cheque, err := s.ProcessCheque(gCtx, u.Filename, u.Data, u.ContentType)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Success = true
				item.Cheque = cheque
			}
			items[i] = item
			return nil
		})
	}
	// Workers record failures in their item and always return nil
	_ = g.Wait()

	succeeded := 0
	for _, item := range items {
		if item.Success {
			succeeded++
		}
	}
	slog.Info("Processed batch", "files", len(uploads), "succeeded", succeeded)

	return items
}
