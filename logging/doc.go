// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. Built-in handlers cover json and text output plus
// a colorized console format for interactive use.
package logging
