package client

import (
	"fmt"
	"io"
	"strings"
)

// TerminalView prints review state as plain text
type TerminalView struct {
	out io.Writer
	err io.Writer

	// Failed is set once an error or alert has been shown
	Failed bool
}

// NewTerminalView writes normal output to out and problems to errOut
func NewTerminalView(out, errOut io.Writer) *TerminalView {
	return &TerminalView{out: out, err: errOut}
}

var _ View = (*TerminalView)(nil)

func (v *TerminalView) ShowLoading() {}

func (v *TerminalView) RenderReviews(items []ReviewItem) {
	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(v.out)
		}
		fmt.Fprintln(v.out, item.Name)
		for _, line := range strings.Split(item.Body, "\n") {
			fmt.Fprintf(v.out, "  %s\n", line)
		}
		if item.Timestamp != "" {
			fmt.Fprintf(v.out, "  %s\n", item.Timestamp)
		}
	}
}

func (v *TerminalView) RenderEmpty(msg string) {
	fmt.Fprintln(v.out, msg)
}

func (v *TerminalView) RenderError(msg string) {
	v.Failed = true
	fmt.Fprintln(v.err, msg)
}

func (v *TerminalView) Alert(msg string) {
	v.Failed = true
	fmt.Fprintln(v.err, msg)
}

func (v *TerminalView) SetSubmitting(busy bool, label string) {
	if busy {
		fmt.Fprintln(v.err, label)
	}
}

func (v *TerminalView) ClearForm() {}

// StaticForm is a Form with fixed values, used by the CLI
type StaticForm struct {
	NameValue string
	TextValue string
}

func (f StaticForm) Name() string { return f.NameValue }
func (f StaticForm) Text() string { return f.TextValue }
