// Package gate provides the human-approval boundary: strategic points where
// generated content is held for human judgement before being acted on. The
// Gate interface is pluggable for terminal, web, or automated test doubles.
package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Gate presents content for approval. Present blocks until a decision is
// made; the core imposes no timeout, callers may bound ctx.
type Gate interface {
	Present(ctx context.Context, content string) (approved bool, err error)
}

// TerminalGate asks for approval on an interactive terminal.
type TerminalGate struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalGate constructs a TerminalGate reading decisions from in and
// writing prompts to out (typically os.Stdin and os.Stdout).
func NewTerminalGate(in io.Reader, out io.Writer) *TerminalGate {
	return &TerminalGate{in: bufio.NewReader(in), out: out}
}

// Present implements Gate. Any answer starting with "y" (case-insensitive)
// approves; everything else rejects.
func (g *TerminalGate) Present(ctx context.Context, content string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(g.out, "Generated content:\n%s\n\nApprove this? (y/n): ", content)

	line, err := g.in.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read approval decision: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return strings.HasPrefix(answer, "y"), nil
}

// StaticGate is a Gate with a fixed decision, for tests and unattended runs.
type StaticGate struct {
	Approved bool
}

// Present implements Gate.
func (g StaticGate) Present(ctx context.Context, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.Approved, nil
}
