package sourcemap

import "fmt"

// ValidateRoundTrip parses a Generate()'d document with go-sourcemap's
// own Consumer and checks every recorded mapping resolves back to its
// original (file, line) — the same round trip a downstream debugger
// performs, and the thing worth asserting in tests rather than
// eyeballing the VLQ bytes.
func ValidateRoundTrip(data []byte, want []Mapping) error {
	c, err := NewConsumer(data)
	if err != nil {
		return err
	}
	for _, m := range want {
		file, line, ok := c.Source(m.GenLine)
		if !ok {
			return fmt.Errorf("no mapping recovered for generated line %d", m.GenLine)
		}
		if file != m.SourceFile || line != m.SourceLine {
			return fmt.Errorf("generated line %d: got %s:%d, want %s:%d", m.GenLine, file, line, m.SourceFile, m.SourceLine)
		}
	}
	return nil
}
