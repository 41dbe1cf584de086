package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gympass/goprompt"

	"github.com/bamsammich/migrate/internal/engine"
)

// Question returns the prompt shown at gate g.
func Question(g engine.Gate) string {
	switch g {
	case engine.GateDiscovery:
		return "Continue with these directories? [y|n]"
	case engine.GatePlan:
		return "Start copying? [y|n]"
	default:
		return "Continue? [y|n]"
	}
}

// parseAnswer reports the decision for a typed answer. Only the first
// letter counts, case-insensitively.
func parseAnswer(s string) (yes, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false, false
	}
	switch s[0] {
	case 'y':
		return true, true
	case 'n':
		return false, true
	}
	return false, false
}

// LineConfirmer asks on a plain line-oriented stream. It repeats the
// question until it reads an answer starting with y or n. End of input
// is a decline. A Confirm cut short by its context leaves the confirmer
// usable; a line typed meanwhile answers the next question.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer

	// Only the reader goroutine touches in.
	start sync.Once
	lines chan lineResult
}

// NewLineConfirmer reads answers from in and writes questions to out.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult),
	}
}

type lineResult struct {
	line string
	err  error
}

func (c *LineConfirmer) Confirm(ctx context.Context, g engine.Gate) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s ", Question(g))

		res, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		if yes, ok := parseAnswer(res.line); ok {
			return yes, nil
		}
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				fmt.Fprintln(c.out)
				return false, nil
			}
			return false, fmt.Errorf("read answer: %w", res.err)
		}
		fmt.Fprintln(c.out, "Please respond y or n")
	}
}

// readLine waits for one line or for ctx to end, whichever is first.
func (c *LineConfirmer) readLine(ctx context.Context) (lineResult, error) {
	c.start.Do(func() { go c.readLoop() })
	select {
	case <-ctx.Done():
		return lineResult{}, ctx.Err()
	case res, ok := <-c.lines:
		if !ok {
			return lineResult{err: io.EOF}, nil
		}
		return res, nil
	}
}

// readLoop hands lines to readLine until the input fails, then closes
// lines.
func (c *LineConfirmer) readLoop() {
	defer close(c.lines)
	for {
		line, err := c.in.ReadString('\n')
		c.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// TerminalConfirmer asks with an interactive terminal prompt.
type TerminalConfirmer struct{}

func (TerminalConfirmer) Confirm(ctx context.Context, g engine.Gate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p := gatePrompt(g)
	r, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	return decide(r.Cancelled, r.Value), nil
}

func gatePrompt(g engine.Gate) goprompt.Prompt {
	return goprompt.Prompt{
		Label:        Question(g),
		Description:  gateDescription(g),
		DefaultValue: "n",
		Validation: func(s string) bool {
			_, ok := parseAnswer(s)
			return ok
		},
	}
}

// decide maps a finished terminal prompt to a gate decision. A cancelled
// prompt declines.
func decide(cancelled bool, value string) bool {
	if cancelled {
		return false
	}
	yes, _ := parseAnswer(value)
	return yes
}

func gateDescription(g engine.Gate) string {
	switch g {
	case engine.GateDiscovery:
		return "Target paths are resolved next; nothing is written yet"
	case engine.GatePlan:
		return "Files in the target tree will be created or overwritten"
	default:
		return ""
	}
}
