package logging

import (
	"context"
)

type debugModeKey struct{}

// EnableDebugMode marks ctx so that CDebugw logs regardless of the logger's level. The tag, if
// given, is only informational.
func EnableDebugMode(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = "debug"
	}
	return context.WithValue(ctx, debugModeKey{}, tag)
}

// IsDebugMode reports whether ctx was marked by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	tag, _ := ctx.Value(debugModeKey{}).(string)
	return tag != ""
}
