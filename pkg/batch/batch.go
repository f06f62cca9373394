// Package batch runs the summarization pipeline over a sequence of
// documents. Items are processed strictly one at a time; a per-item failure
// is recorded and the batch moves on, and a stop request takes effect
// between items, never by interrupting the one in flight.
package batch

import (
	"context"
	"sync/atomic"

	"github.com/BlueBlueKitty/zotero-ainote/pkg/logging"
)

// Pipeline holds the collaborators one item passes through. Extract and
// Persist are the host-application surfaces; Summarize drives the AI
// exchange and reports text increments through sink.
type Pipeline struct {
	Extract   func(path string) (string, error)
	Summarize func(ctx context.Context, document string, sink func(increment string)) (string, error)
	Persist   func(parent, summary string) error
}

// ItemError records which item failed and why.
type ItemError struct {
	Path string
	Err  error
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int // items not started because of a stop request
	Failures  []ItemError
}

// Processor runs batches. It holds no per-item state between runs; the
// stop flag is the only cross-item signal.
type Processor struct {
	pipeline Pipeline
	logger   *logging.Logger
	progress func(path, increment string)
	stopped  atomic.Bool
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger attaches a debug logger.
func WithLogger(logger *logging.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithProgress registers a callback receiving each text increment of each
// item, in order. Called synchronously from the pipeline.
func WithProgress(fn func(path, increment string)) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// NewProcessor creates a batch processor over the given pipeline.
func NewProcessor(pipeline Pipeline, opts ...ProcessorOption) *Processor {
	p := &Processor{pipeline: pipeline}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stop requests that no further items be started. The item currently in
// flight is allowed to run to completion.
func (p *Processor) Stop() {
	p.stopped.Store(true)
}

// Run processes each path in order and returns the final counts. Context
// cancellation, like Stop, is honored between items.
func (p *Processor) Run(ctx context.Context, paths []string) Summary {
	var summary Summary
	for i, path := range paths {
		if p.stopped.Load() || ctx.Err() != nil {
			summary.Skipped = len(paths) - i
			p.logf("stop requested, skipping %d remaining item(s)", summary.Skipped)
			break
		}
		if err := p.runItem(ctx, path); err != nil {
			p.logf("item %s failed: %v", path, err)
			summary.Failed++
			summary.Failures = append(summary.Failures, ItemError{Path: path, Err: err})
			continue
		}
		summary.Succeeded++
	}
	return summary
}

func (p *Processor) runItem(ctx context.Context, path string) error {
	text, err := p.pipeline.Extract(path)
	if err != nil {
		return err
	}

	sink := func(increment string) {
		if p.progress != nil {
			p.progress(path, increment)
		}
	}
	summaryText, err := p.pipeline.Summarize(ctx, text, sink)
	if err != nil {
		return err
	}

	return p.pipeline.Persist(path, summaryText)
}

func (p *Processor) logf(format string, v ...interface{}) {
	if p.logger != nil {
		p.logger.Infof(format, v...)
	}
}
