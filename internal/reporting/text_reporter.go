package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

// TextReporter renders a human-readable summary for terminal consumption.
type TextReporter struct {
	writer io.WriteCloser

	mu        sync.Mutex
	envelopes []*schemas.ResultEnvelope
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(envelope *schemas.ResultEnvelope) error {
	if envelope == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, envelope)
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var renderErr error
	for _, envelope := range r.envelopes {
		if err := renderText(r.writer, envelope); err != nil {
			renderErr = err
			break
		}
	}

	closeErr := r.writer.Close()

	if renderErr != nil {
		return fmt.Errorf("failed to render text output: %w", renderErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

func renderText(w io.Writer, envelope *schemas.ResultEnvelope) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Host header poisoning scan %s\n", envelope.ScanID)
	if envelope.Result != nil {
		fmt.Fprintf(&b, "Framework: %s  Files scanned: %d  Files skipped: %d\n",
			envelope.Result.Framework, envelope.Result.FilesScanned, envelope.Result.FilesSkipped)
	}
	fmt.Fprintf(&b, "Findings: %d\n", len(envelope.Findings))

	if len(envelope.Findings) > 0 {
		b.WriteString("\n")
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEVERITY\tLOCATION\tVULNERABILITY")
		for _, finding := range envelope.Findings {
			fmt.Fprintf(tw, "%s\t%s\t%s\n",
				strings.ToUpper(string(finding.Severity)), finding.Target, finding.VulnerabilityName)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
