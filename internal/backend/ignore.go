package backend

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFile compiles and caches a gitignore-style pattern file, recompiling
// whenever AddPattern changes it. Pattern semantics (anchored relative
// globs, directory-only "/" suffix, negation "!", comment lines) are
// exactly gitignore's, per spec §4.3.
type ignoreFile struct {
	mu      sync.Mutex
	path    string
	matcher *gitignore.GitIgnore
}

func newIgnoreFile(path string) *ignoreFile {
	return &ignoreFile{path: path}
}

func (f *ignoreFile) load() (*gitignore.GitIgnore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.matcher != nil {
		return f.matcher, nil
	}

	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		f.matcher = gitignore.CompileIgnoreLines()
		return f.matcher, nil
	}

	m, err := gitignore.CompileIgnoreFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("backend: parse ignore file %s: %w", f.path, err)
	}
	f.matcher = m
	return f.matcher, nil
}

// IsIgnored reports whether repoRelative matches the last matching rule's
// polarity, per spec §4.3.
func (f *ignoreFile) IsIgnored(repoRelative string) (bool, error) {
	m, err := f.load()
	if err != nil {
		return false, err
	}
	return m.MatchesPath(repoRelative), nil
}

// AddPattern appends pattern as a new line, unless it is already present
// verbatim, and invalidates the cached matcher so the next IsIgnored call
// recompiles it.
func (f *ignoreFile) AddPattern(pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, err := f.readLines(); err == nil {
		for _, line := range existing {
			if strings.TrimSpace(line) == pattern {
				return nil
			}
		}
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("backend: open ignore file %s: %w", f.path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(pattern + "\n"); err != nil {
		return fmt.Errorf("backend: write ignore file %s: %w", f.path, err)
	}

	f.matcher = nil
	return nil
}

func (f *ignoreFile) readLines() ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
