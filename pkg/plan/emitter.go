package plan

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Emitter validates plan documents and writes them to sinks.
type Emitter struct {
	format Format
	schema *Schema
	logger zerolog.Logger
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithLogger sets the emitter logger.
func WithLogger(logger zerolog.Logger) EmitterOption {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// NewEmitter creates an emitter writing the given format.
func NewEmitter(format Format, opts ...EmitterOption) (*Emitter, error) {
	if format == "" {
		format = FormatJSON
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	schema, err := NewSchema()
	if err != nil {
		return nil, err
	}
	e := &Emitter{format: format, schema: schema, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Format returns the output format.
func (e *Emitter) Format() Format { return e.format }

// Render validates doc against the plan schema and encodes it.
func (e *Emitter) Render(doc *Document) ([]byte, error) {
	if err := e.schema.Validate(doc); err != nil {
		return nil, err
	}
	return Encode(doc, e.format)
}

// Emit writes doc to w. The buffered writer is flushed on every path.
// It returns the encoded bytes so callers can record a checksum.
func (e *Emitter) Emit(w io.Writer, doc *Document) (data []byte, err error) {
	data, err = e.Render(doc)
	if err != nil {
		return nil, &EmitError{Sink: "stream", Err: err}
	}

	bw := bufio.NewWriter(w)
	n, werr := bw.Write(data)
	ferr := bw.Flush()
	if werr == nil {
		werr = ferr
	}
	if werr != nil {
		return nil, &EmitError{Sink: "stream", Partial: n > 0 || ferr != nil, Err: werr}
	}

	e.logger.Debug().
		Int("bytes", len(data)).
		Int("variants", len(doc.Variants)).
		Msg("Plan written to stream")
	return data, nil
}

// EmitFile writes doc to path through a temporary file in the same
// directory that is renamed into place on success and removed on failure.
func (e *Emitter) EmitFile(path string, doc *Document) ([]byte, error) {
	data, err := e.Render(doc)
	if err != nil {
		return nil, &EmitError{Sink: path, Err: err}
	}

	if err := writeFileAtomic(path, data); err != nil {
		return nil, &EmitError{Sink: path, Partial: true, Err: err}
	}

	e.logger.Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Int("variants", len(doc.Variants)).
		Msg("Plan written to file")
	return data, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync plan: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close plan: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set plan permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move plan into place: %w", err)
	}
	return nil
}

// Checksum returns the hex SHA-256 of encoded plan bytes.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
