package logging

import "context"

type attrsKey struct{}

// ContextWith returns a copy of ctx carrying extra key-value pairs. Loggers
// from this package prepend them to every record logged with that context,
// so a connection or request can be tagged once at its entry point.
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := contextArgs(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

func contextArgs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	args, _ := ctx.Value(attrsKey{}).([]any)
	return args
}
