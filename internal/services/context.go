package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	chunkKey contextKey = "chunk"
	unitKey  contextKey = "unit"
	stageKey contextKey = "stage"
)

// WithRunID annotates context with the mastering run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the mastering run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChunk annotates context with a chunk index.
func WithChunk(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, chunkKey, index)
}

// ChunkFromContext extracts the chunk index if present.
func ChunkFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(chunkKey)
	if v == nil {
		return 0, false
	}
	if index, ok := v.(int); ok {
		return index, true
	}
	return 0, false
}

// WithUnit annotates context with an execution unit identifier.
func WithUnit(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, unitKey, id)
}

// UnitFromContext extracts the execution unit identifier if present.
func UnitFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(unitKey)
	if v == nil {
		return 0, false
	}
	if id, ok := v.(int); ok {
		return id, true
	}
	return 0, false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
