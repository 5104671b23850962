package extraction

import (
	"context"
	"log/slog"
)

// Source names the stage that completed a result
type Source string

const (
	// SourcePattern means the pattern pass found every eligible field
	SourcePattern Source = "pattern"
	// SourceRemote means the remote model was consulted
	SourceRemote Source = "remote"
	// SourceHeuristic means the local heuristic was consulted
	SourceHeuristic Source = "heuristic"
)

// Engine runs the pattern pass and, when needed, the fallback resolver
type Engine struct {
	resolver *Resolver
}

// NewEngine creates an Engine that falls back to resolver. A nil resolver
// falls back to the local heuristic only.
func NewEngine(resolver *Resolver) *Engine {
	if resolver == nil {
		resolver = NewResolver(DefaultConfig(), nil)
	}
	return &Engine{resolver: resolver}
}

// Extract resolves fields from fragments. It never fails; fields that
// could not be resolved are left empty. ctx only reaches the remote model
// call.
func (e *Engine) Extract(ctx context.Context, fragments []Fragment) Result {
	result, _ := e.ExtractWithSource(ctx, fragments)
	return result
}

// ExtractWithSource is Extract that also reports which stage finished the result
func (e *Engine) ExtractWithSource(ctx context.Context, fragments []Fragment) (Result, Source) {
	result := Extract(fragments)

	// Nothing was read, so nothing may be resolved either
	if len(fragments) == 0 {
		slog.Debug("No fragments to extract from")
		return result, SourcePattern
	}

	missing := result.Missing()
	if len(missing) == 0 {
		slog.Debug("Pattern extraction found all fields")
		return result, SourcePattern
	}

	slog.Info("Fields missing after pattern extraction, trying fallback", "missing", missing)
	resolution := e.resolver.Resolve(ctx, fragments)
	filled := Merge(&result, resolution)
	slog.Info("Fallback finished",
		"outcome", resolution.Outcome.String(),
		"filled", filled,
	)

	if resolution.Remote() {
		return result, SourceRemote
	}
	return result, SourceHeuristic
}
