// Package library maps spoken song names to links, read from a YAML file of
// `name: url` pairs.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sagar/internal/assistant"
)

// Library implements assistant.SongLookup. Names are matched case-insensitively.
type Library struct {
	songs map[string]string
}

// Load reads path. A missing file reports assistant.ErrNotInstalled so the
// caller can run without a song library.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: song library %s", assistant.ErrNotInstalled, path)
	}
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

func Parse(data []byte) (*Library, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse song library: %w", err)
	}

	lib := &Library{songs: make(map[string]string, len(raw))}
	for name, url := range raw {
		name = normalizeName(name)
		url = strings.TrimSpace(url)
		if name == "" || url == "" {
			continue
		}
		lib.songs[name] = url
	}

	return lib, nil
}

func (l *Library) Lookup(name string) (string, bool) {
	url, ok := l.songs[normalizeName(name)]
	return url, ok
}

func (l *Library) Len() int { return len(l.songs) }

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
