package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter emits the result envelope as indented JSON. If Write is
// called more than once the findings are merged under the first envelope's
// scan metadata.
type JSONReporter struct {
	writer io.WriteCloser

	mu       sync.Mutex
	envelope *schemas.ResultEnvelope
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(envelope *schemas.ResultEnvelope) error {
	if envelope == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.envelope == nil {
		clone := *envelope
		clone.Findings = append([]schemas.Finding(nil), envelope.Findings...)
		r.envelope = &clone
		return nil
	}
	r.envelope.Findings = append(r.envelope.Findings, envelope.Findings...)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var encodeErr error
	if r.envelope != nil {
		encoder := jsonCodec.NewEncoder(r.writer)
		encoder.SetIndent("", "  ")
		encodeErr = encoder.Encode(r.envelope)
	}

	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
