package domain

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/edit"
)

// Calculator turns an edit into a feature vector
type Calculator interface {
	Calculate(e *edit.Edit) ([]float64, error)
	Names() []string
}

// Sink persists output records; Write may be called concurrently with different batches
type Sink interface {
	Name() string
	Write(ctx context.Context, rs []Record) error
	Close(ctx context.Context) error
}

// JobPort runs a local end to end job over dump files
type JobPort interface {
	Run(ctx context.Context, paths []string) (Summary, error)
	Snapshot() Summary
}
