package codec

import (
	"fmt"
	"io"
	"os"

	"github.com/roach88/bir/internal/ir"
)

// ReadFile reads and decodes the module at path.
func ReadFile(path string) (*Module, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	m, err := Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

// WriteFile encodes p and writes it to path. Nothing is written if
// encoding fails.
func WriteFile(path string, p *ir.Program) error {
	buf, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	return nil
}

// EncodeTo encodes p and writes the result to w.
func EncodeTo(w io.Writer, p *ir.Program) error {
	buf, err := Encode(p)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
