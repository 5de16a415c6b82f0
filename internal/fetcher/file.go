package fetcher

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource loads entries from a YAML file of the form:
//
//	entries:
//	  welcome_message: "Hello"
//
// The file is re-read on every Load so edits show up on the next fetch.
type FileSource struct {
	path string
}

type fileEntries struct {
	Entries map[string]string `yaml:"entries"`
}

// NewFileSource creates a FileSource reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var parsed fileEntries
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if parsed.Entries == nil {
		return map[string]string{}, nil
	}
	return parsed.Entries, nil
}
