package search

import (
	"context"
	"log/slog"
	"time"
)

// Stage names one step of a search.
type Stage string

const (
	StagePlan        Stage = "plan"
	StageCount       Stage = "count"
	StageFetch       Stage = "fetch"
	StageMaterialize Stage = "materialize"
)

// Instrumenter observes every stage of a search once it finishes.
type Instrumenter interface {
	ObserveStage(ctx context.Context, stage Stage, elapsed time.Duration, err error)
}

// Instrumenters fans observations out to several instrumenters.
type Instrumenters []Instrumenter

// ObserveStage implements Instrumenter.
func (is Instrumenters) ObserveStage(ctx context.Context, stage Stage, elapsed time.Duration, err error) {
	for _, i := range is {
		i.ObserveStage(ctx, stage, elapsed, err)
	}
}

type nopInstrumenter struct{}

func (nopInstrumenter) ObserveStage(context.Context, Stage, time.Duration, error) {}

// LogInstrumenter writes stage timings to a logger at debug level.
type LogInstrumenter struct {
	logger *slog.Logger
}

// NewLogInstrumenter creates a LogInstrumenter.
func NewLogInstrumenter(logger *slog.Logger) *LogInstrumenter {
	return &LogInstrumenter{logger: logger}
}

// ObserveStage implements Instrumenter.
func (l *LogInstrumenter) ObserveStage(ctx context.Context, stage Stage, elapsed time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String("stage", string(stage)),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(ctx, slog.LevelDebug, "search stage", attrs...)
}
