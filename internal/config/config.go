// Package config loads command settings from YAML files.
//
// Commands define their flags first, so the settings struct holds defaults,
// then load the file named by -config, then parse flags. Explicit flags win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes path into out. Unknown keys are an error.
func LoadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var dec = yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err = dec.Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %v: %w", path, err)
	}
	return nil
}

// FlagValue returns the value of -name or --name from args without parsing other flags.
func FlagValue(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		var arg = args[i]
		if arg == "--" {
			break
		}
		var trimmed = strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		if trimmed == arg {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1]
		}
		if value, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return value
		}
	}
	return ""
}
