package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteYAML dumps v to filename with two space indentation.
func WriteYAML(filename string, v interface{}) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return enc.Close()
}

// ReadYAML loads filename into v.
func ReadYAML(filename string, v interface{}) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return nil
}
