// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfkit

import (
	"context"
	"fmt"

	"github.com/foliumkit/pdfkit/logger"
	"golang.org/x/sync/semaphore"
)

// Batch opens many PDF files concurrently, bounded by
// Config.MaxConcurrentDocuments. Each resulting Reader is independent and
// still non-reentrant per §5: concurrency belongs at the "open many files"
// level, never inside a single Reader or Writer.
type Batch struct {
	cfg *Config
	sem *semaphore.Weighted
}

// NewBatch validates cfg and returns a Batch bounded by its
// MaxConcurrentDocuments.
func NewBatch(cfg *Config) (*Batch, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Batch{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrentDocuments)),
	}, nil
}

// batchResult pairs an opened Reader (or the error that prevented opening
// it) with the index of the path it came from, so Open can return results
// in the same order paths were given.
type batchResult struct {
	index  int
	reader *Reader
	err    error
}

// Open opens every path in paths concurrently, up to
// Config.MaxConcurrentDocuments at a time, and returns a Reader (or nil) and
// an error for each path, in the same order as paths. Callers that get a
// non-nil Reader are responsible for calling its Close.
func (b *Batch) Open(ctx context.Context, paths []string) ([]*Reader, []error) {
	readers := make([]*Reader, len(paths))
	errs := make([]error, len(paths))
	results := make(chan batchResult, len(paths))

	for i, path := range paths {
		i, path := i, path
		go func() {
			if err := b.sem.Acquire(ctx, 1); err != nil {
				results <- batchResult{i, nil, fmt.Errorf("acquire slot for %s: %w", path, err)}
				return
			}
			defer b.sem.Release(1)

			ctxDoc, cancel := context.WithTimeout(ctx, b.cfg.WorkerTimeout)
			defer cancel()

			r, err := openWithDeadline(ctxDoc, path, b.cfg)
			results <- batchResult{i, r, err}
		}()
	}

	for range paths {
		res := <-results
		readers[res.index] = res.reader
		errs[res.index] = res.err
		if res.err != nil {
			logger.Debug(fmt.Sprintf("batch open failed: path=%s err=%v", paths[res.index], res.err), true)
		}
	}
	return readers, errs
}

// openWithDeadline opens path under cfg, failing fast if ctx is already
// done. Open itself performs no I/O that can be cancelled mid-flight, so ctx
// is checked only once, before Open starts. The wait for a semaphore slot in
// Batch.Open is bounded by the caller's ctx, not by this per-document deadline.
func openWithDeadline(ctx context.Context, path string, cfg *Config) (*Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return OpenWithConfig(path, cfg)
}
