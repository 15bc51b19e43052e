// Package reporting renders scan envelopes into the supported output
// formats (SARIF, JSON, plain text) and manages the underlying writer
// lifecycle.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

// Reporter consumes result envelopes and renders them on Close. Write may be
// called more than once; implementations accumulate until Close.
type Reporter interface {
	Write(envelope *schemas.ResultEnvelope) error
	Close() error
}

// New builds a reporter for the given format. An empty or "stdout" output
// path writes to standard output without closing it.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	var cleanup func()

	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
		cleanup = func() {}
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %q: %w", outputPath, err)
		}
		writer = file
		cleanup = func() { file.Close() }
	}

	switch format {
	case "sarif":
		return NewSARIFReporter(writer, toolVersion), nil
	case "json":
		return NewJSONReporter(writer), nil
	case "text":
		return NewTextReporter(writer), nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// nopWriteCloser wraps a writer whose lifetime we do not own, such as stdout.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }
