package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileWalker discovers the project files a run visits
type FileWalker struct {
	workers    int
	bufferSize int
}

// NewFileWalker creates a walker sized for I/O bound work
func NewFileWalker() *FileWalker {
	return &FileWalker{
		workers:    runtime.NumCPU() * 2,
		bufferSize: 1000,
	}
}

// WalkResult represents a discovered file
type WalkResult struct {
	Path     string // Absolute path
	Rel      string // Relative to the scope root, slash separated
	Info     fs.FileInfo
	Language string
	Error    error
}

// Walk streams the files of scope. Results arrive in no particular order
func (fw *FileWalker) Walk(ctx context.Context, scope FileScope) (<-chan WalkResult, error) {
	if err := fw.validateScope(scope); err != nil {
		return nil, err
	}

	results := make(chan WalkResult, fw.bufferSize)
	paths := make(chan string, fw.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < fw.workers; i++ {
		wg.Add(1)
		go fw.worker(ctx, paths, results, scope, &wg)
	}

	go func() {
		defer close(paths)
		processed := 0
		var visited map[string]struct{}
		if scope.FollowSymlinks {
			visited = make(map[string]struct{})
			if resolved, err := filepath.EvalSymlinks(scope.Path); err == nil {
				visited[resolved] = struct{}{}
			} else {
				visited[scope.Path] = struct{}{}
			}
		}
		fw.scanDirectory(ctx, scope.Path, scope, paths, 0, &processed, visited)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

// Discover returns the files of scope sorted by relative path, so runs over
// the same tree see the same order. Files that cannot be stat'ed are
// skipped.
func (fw *FileWalker) Discover(ctx context.Context, scope FileScope) ([]WalkResult, error) {
	results, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}
	var files []WalkResult
	for result := range results {
		if result.Error != nil {
			continue
		}
		files = append(files, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b WalkResult) int { return strings.Compare(a.Rel, b.Rel) })
	return files, nil
}

// worker stats discovered paths in parallel
func (fw *FileWalker) worker(
	ctx context.Context,
	paths <-chan string,
	results chan<- WalkResult,
	scope FileScope,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}

			result := fw.processFile(path, scope)

			select {
			case <-ctx.Done():
				return
			case results <- result:
			}
		}
	}
}

// scanDirectory recursively discovers files matching the scope patterns
func (fw *FileWalker) scanDirectory(
	ctx context.Context,
	dirPath string,
	scope FileScope,
	paths chan<- string,
	depth int,
	processed *int,
	visited map[string]struct{},
) {
	if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if scope.MaxDepth > 0 && depth > scope.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return // Skip directories we can't read
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		rel := fw.relative(scope.Path, fullPath)

		if fw.matchAny(rel, scope.Exclude) {
			continue
		}

		if entry.Type()&os.ModeSymlink != 0 {
			if !scope.FollowSymlinks {
				continue
			}
			resolvedPath, err := filepath.EvalSymlinks(fullPath)
			if err != nil || resolvedPath == "" {
				continue
			}
			info, err := os.Stat(resolvedPath)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if _, seen := visited[resolvedPath]; seen {
					continue
				}
				visited[resolvedPath] = struct{}{}
				fw.scanDirectory(ctx, fullPath, scope, paths, depth+1, processed, visited)
				continue
			}
		}

		if entry.IsDir() {
			if visited != nil {
				realPath := fullPath
				if resolved, err := filepath.EvalSymlinks(fullPath); err == nil && resolved != "" {
					realPath = resolved
				}
				if _, seen := visited[realPath]; seen {
					continue
				}
				visited[realPath] = struct{}{}
			}
			fw.scanDirectory(ctx, fullPath, scope, paths, depth+1, processed, visited)
			continue
		}

		if !fw.isIncluded(rel, scope.Include) {
			continue
		}
		if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
			return
		}
		select {
		case <-ctx.Done():
			return
		case paths <- fullPath:
			*processed++
		}
	}
}

// processFile stats a single file and creates its WalkResult
func (fw *FileWalker) processFile(path string, scope FileScope) WalkResult {
	rel := fw.relative(scope.Path, path)
	info, err := os.Stat(path)
	if err != nil {
		return WalkResult{Path: path, Rel: rel, Error: err}
	}
	return WalkResult{
		Path:     path,
		Rel:      rel,
		Info:     info,
		Language: DetectLanguage(path),
	}
}

func (fw *FileWalker) relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// DetectLanguage names the parser a file needs: "java" for sources,
// "manifest" for Maven build files, "unknown" otherwise
func DetectLanguage(path string) string {
	switch {
	case strings.EqualFold(filepath.Ext(path), ".java"):
		return "java"
	case filepath.Base(path) == "pom.xml":
		return "manifest"
	}
	return "unknown"
}

// isIncluded checks the relative path against the include patterns, or the
// defaults when there are none
func (fw *FileWalker) isIncluded(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		patterns = DefaultInclude
	}
	return fw.matchAny(rel, patterns)
}

func (fw *FileWalker) matchAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if fw.matchPattern(rel, pattern) {
			return true
		}
	}
	return false
}

// matchPattern matches a slash separated relative path against a doublestar
// glob. Patterns without a slash also match the base name
func (fw *FileWalker) matchPattern(rel, pattern string) bool {
	if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, err := doublestar.Match(pattern, pathBase(rel)); err == nil && matched {
			return true
		}
	}
	return false
}

func pathBase(rel string) string {
	return rel[strings.LastIndexByte(rel, '/')+1:]
}

// validateScope checks that the scope root is an accessible directory
func (fw *FileWalker) validateScope(scope FileScope) error {
	if scope.Path == "" {
		return fmt.Errorf("path is required")
	}
	info, err := os.Stat(scope.Path)
	if err != nil {
		return fmt.Errorf("cannot access path %s: %w", scope.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", scope.Path)
	}
	return nil
}

// ValidatePatterns reports the first malformed glob among patterns
func ValidatePatterns(patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}
