package app

import (
	"context"
	"strings"
)

// Save sources recorded on saved entries.
const (
	SourceTUI   = "tui"
	SourceServe = "serve"
	SourceCLI   = "cli"
)

// saveSourceContextKey stores context keys for save-source values.
type saveSourceContextKey struct{}

// WithSaveSource attaches the surface that produced a like to ctx.
func WithSaveSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, saveSourceContextKey{}, normalizeSaveSource(source))
}

// SaveSourceFromContext returns the surface recorded on ctx, if any.
func SaveSourceFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	source, ok := ctx.Value(saveSourceContextKey{}).(string)
	if !ok || source == "" {
		return "", false
	}
	return source, true
}

func normalizeSaveSource(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}
