// Package envfile reads the key-value file injected into the container
// environment at start time, with the same rules as `docker run --env-file`:
// one KEY=VALUE per line, values taken verbatim (no quote stripping, no
// variable expansion), blank lines and lines starting with # ignored.
package envfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/afero"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader parses env files from a filesystem.
type Loader struct {
	fs     afero.Fs
	lookup func(string) (string, bool)
}

// NewLoader returns a Loader reading from fs. A line holding only a key
// takes its value from the process environment, as the docker CLI does.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs, lookup: os.LookupEnv}
}

// Load parses path and returns KEY=VALUE pairs sorted by key. A key set more
// than once keeps its last value.
func (l *Loader) Load(path string) ([]string, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	env := map[string]string{}
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Bytes()
		if n == 1 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		if !utf8.Valid(line) {
			return nil, fmt.Errorf("env file %s:%d: invalid utf8 bytes", path, n)
		}

		text := strings.TrimLeftFunc(string(line), unicode.IsSpace)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, value, hasValue := strings.Cut(text, "=")
		if key == "" {
			return nil, fmt.Errorf("env file %s:%d: no variable name on line %q", path, n, text)
		}
		if strings.ContainsFunc(key, unicode.IsSpace) {
			return nil, fmt.Errorf("env file %s:%d: variable %q contains whitespace", path, n, key)
		}
		if !hasValue {
			v, ok := l.lookup(key)
			if !ok {
				continue
			}
			value = v
		}
		env[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs, nil
}
