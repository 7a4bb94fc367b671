package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// BinaryProducer converts rendered HTML into a binary document.
type BinaryProducer interface {
	Produce(ctx context.Context, html []byte) ([]byte, error)
}

// CommandProducer pipes HTML through an external converter that reads
// stdin and writes the document to stdout, e.g. "wkhtmltopdf - -".
type CommandProducer struct {
	name string
	args []string
}

// NewCommandProducer splits command on whitespace. An empty command
// yields nil.
func NewCommandProducer(command string) *CommandProducer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	return &CommandProducer{name: fields[0], args: fields[1:]}
}

// Produce implements BinaryProducer.
func (p *CommandProducer) Produce(ctx context.Context, html []byte) ([]byte, error) {
	if p == nil {
		return nil, ErrNoProducer
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(html)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.name, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s: empty output", p.name)
	}
	return stdout.Bytes(), nil
}
