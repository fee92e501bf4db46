package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/pathutil"
)

// IgnoreFileName lists extra exclude patterns, one per line, in the root of
// an indexed directory.
const IgnoreFileName = ".ragignore"

// ScanResult contains the results of a filesystem scan. Paths are absolute.
type ScanResult struct {
	Added     []string
	Modified  []string
	Unchanged []string
	// Deleted holds documents whose source lies under the scanned root but
	// no longer exists there.
	Deleted []*models.Document
}

// TotalChanges returns the total number of changes detected.
func (r *ScanResult) TotalChanges() int {
	return len(r.Added) + len(r.Modified) + len(r.Deleted)
}

// Scanner finds the indexable files under a directory and compares them
// with what is already stored.
type Scanner struct {
	root    string
	include []string
	exclude []string
	maxSize int64
}

// NewScanner creates a scanner for root using the include and exclude
// patterns of cfg plus any patterns in root/.ragignore.
func NewScanner(root string, cfg config.IndexConfig) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("index root does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("index root is not a directory: %s", abs)
	}

	extra, err := loadIgnoreFile(filepath.Join(abs, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	exclude := append([]string{"**/" + config.DefaultDataDirName + "/**"}, cfg.ExcludePatterns...)
	return &Scanner{
		root:    abs,
		include: cfg.IncludePatterns,
		exclude: append(exclude, extra...),
		maxSize: cfg.MaxFileSize,
	}, nil
}

// Root returns the absolute directory being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the root and classifies every matching file against the
// stored documents. A file is modified when it changed after its document
// was last written.
func (s *Scanner) Scan(ctx context.Context, indexed []*models.Document) (*ScanResult, error) {
	bySource := make(map[string]*models.Document, len(indexed))
	for _, doc := range indexed {
		if doc.Source != "" {
			bySource[doc.Source] = doc
		}
	}

	result := &ScanResult{}
	seen := make(map[string]bool)

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.Matches(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if s.maxSize > 0 && info.Size() > s.maxSize {
			return nil
		}

		seen[p] = true
		doc, ok := bySource[p]
		switch {
		case !ok:
			result.Added = append(result.Added, p)
		case info.ModTime().After(doc.UpdatedAt):
			result.Modified = append(result.Modified, p)
		default:
			result.Unchanged = append(result.Unchanged, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for source, doc := range bySource {
		if pathutil.Within(source, s.root) && !seen[source] {
			result.Deleted = append(result.Deleted, doc)
		}
	}
	return result, nil
}

// Matches reports whether a slash-separated path relative to the root is
// included and not excluded.
func (s *Scanner) Matches(rel string) bool {
	if s.excluded(rel) {
		return false
	}
	for _, pattern := range s.include {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches slash-separated paths. "**" spans any number of
// segments, other wildcards stay within one segment. A trailing slash on
// name marks a directory, which "dir/**" matches.
func matchGlob(pattern, name string) bool {
	pattern = filepath.ToSlash(pattern)
	if strings.HasSuffix(name, "/") {
		name = strings.TrimSuffix(name, "/") + "/x"
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, parts []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pattern[1:], parts[i:]) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], parts[0]); err != nil || !ok {
			return false
		}
		pattern, parts = pattern[1:], parts[1:]
	}
	return len(parts) == 0
}

// loadIgnoreFile reads gitignore-style lines. "name/" excludes a directory
// anywhere, a bare pattern without a slash matches at any depth.
func loadIgnoreFile(p string) ([]string, error) {
	file, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}
	defer file.Close()

	var patterns []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		if dir, ok := strings.CutSuffix(line, "/"); ok {
			line = dir + "/**"
		}
		if !strings.HasPrefix(line, "**/") && !strings.Contains(strings.TrimSuffix(line, "/**"), "/") {
			line = "**/" + line
		}
		patterns = append(patterns, line)
	}
	return patterns, sc.Err()
}

// readFileWithRetry retries reads that fail while another process holds the
// file, which happens on Windows when editors save.
func readFileWithRetry(p string, attempts int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < max(attempts, 1); attempt++ {
		content, err := os.ReadFile(p)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if runtime.GOOS != "windows" || errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		time.Sleep(time.Duration(100*(attempt+1)) * time.Millisecond)
	}
	return nil, lastErr
}
