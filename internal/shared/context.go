package shared

import "context"

// DefaultTerminal names requests that did not identify their terminal.
const DefaultTerminal = "local"

type terminalContextKey struct{}

// ContextWithTerminal stores the calling terminal identifier in context.
func ContextWithTerminal(ctx context.Context, terminal string) context.Context {
	return context.WithValue(ctx, terminalContextKey{}, terminal)
}

// TerminalFromContext extracts the terminal identifier, defaulting to DefaultTerminal.
func TerminalFromContext(ctx context.Context) string {
	if terminal, _ := ctx.Value(terminalContextKey{}).(string); terminal != "" {
		return terminal
	}
	return DefaultTerminal
}
