// Package questions loads the ordered list of prompts a room plays
// through. The list length is the total question count.
package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFile []byte

type file struct {
	Questions []string `yaml:"questions"`
}

// Default returns the built-in question list.
func Default() []string {
	list, err := Parse(defaultFile)
	if err != nil {
		panic(fmt.Sprintf("questions: embedded list is invalid: %v", err))
	}
	return list
}

// Load reads a question file. An empty path selects the built-in list.
func Load(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]string, error) {
	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	list := make([]string, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if q = strings.TrimSpace(q); q != "" {
			list = append(list, q)
		}
	}
	if len(list) == 0 {
		return nil, errors.New("question list is empty")
	}
	return list, nil
}
