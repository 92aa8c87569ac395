// Package discovery implements File Discovery (§4.2): a bounded concurrent
// walk of a codebase that excludes noise directories before descending into
// them, following the teacher's Scanner.ScanDirectory in
// internal/world/fs.go, which uses filepath.SkipDir on an exclusion
// allowlist rather than filtering after the fact.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/logging"
	"golang.org/x/sync/errgroup"
)

// ExcludedDirs are directory names never descended into, regardless of
// depth. Matching is by base name.
var ExcludedDirs = map[string]bool{
	".git":            true,
	".hg":             true,
	".svn":            true,
	"node_modules":    true,
	"__pycache__":     true,
	".venv":           true,
	"venv":            true,
	"env":             true,
	"target":          true,
	"build":           true,
	"dist":            true,
	".cache":          true,
	".idea":           true,
	".vscode":         true,
	".pytest_cache":   true,
	".mypy_cache":     true,
	".tox":            true,
	"vendor":          true,
	".terraform":      true,
	".next":           true,
	".nuxt":           true,
	"coverage":        true,
	".gradle":         true,
	".nerd":           true,
	".codebase-gardener": true,
}

// extByLanguage maps file extensions to a chunker-recognized language name.
var extByLanguage = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
}

// maxConcurrentStats bounds goroutines doing per-file os.Stat calls,
// mirroring the teacher's bounded semaphore in ScanDirectory.
const maxConcurrentStats = 20

// ProgressFunc is invoked periodically during a walk with the number of
// files discovered so far.
type ProgressFunc func(filesSoFar int)

// Options configures a Walk.
type Options struct {
	// ProgressEvery reports progress every N files. Zero disables
	// progress callbacks.
	ProgressEvery int
	OnProgress    ProgressFunc
}

// Result is the outcome of walking a codebase.
type Result struct {
	Files          []gardenertypes.SourceFile
	DirectoryCount int
	SkippedDirs    []string
}

// Walk traverses root, skipping excluded directories before descending
// into them (via filepath.SkipDir) and classifying each regular file's
// language by extension. It respects ctx cancellation between directory
// entries.
func Walk(ctx context.Context, root string, opts Options) (*Result, error) {
	log := logging.Get(logging.CategoryDiscovery)
	timer := logging.StartTimer(logging.CategoryDiscovery, "walk "+root)
	defer timer.Stop()

	var (
		mu          sync.Mutex
		files       []gardenertypes.SourceFile
		dirCount    int
		skippedDirs []string
	)

	candidates := make([]string, 0, 256)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn("walk error at %s: %v", path, err)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			base := info.Name()
			if path != root && (ExcludedDirs[base] || strings.HasPrefix(base, ".") && base != "." && !allowedDotDir(base)) {
				mu.Lock()
				skippedDirs = append(skippedDirs, path)
				mu.Unlock()
				return filepath.SkipDir
			}
			mu.Lock()
			dirCount++
			mu.Unlock()
			return nil
		}

		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrentStats)
	discovered := 0

	for _, p := range candidates {
		p := p
		select {
		case <-gctx.Done():
			break
		default:
		}

		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()

			info, statErr := os.Stat(p)
			if statErr != nil {
				log.Warn("stat failed for %s: %v", p, statErr)
				return nil
			}

			lang := detectLanguage(p)

			mu.Lock()
			files = append(files, gardenertypes.SourceFile{
				Path:     p,
				Language: lang,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			})
			discovered++
			n := discovered
			mu.Unlock()

			if opts.ProgressEvery > 0 && opts.OnProgress != nil && n%opts.ProgressEvery == 0 {
				opts.OnProgress(n)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	log.Info("walked %s: %d files, %d directories, %d skipped", root, len(files), dirCount, len(skippedDirs))

	return &Result{
		Files:          files,
		DirectoryCount: dirCount,
		SkippedDirs:    skippedDirs,
	}, nil
}

// allowedDotDir lists dot-directories that carry useful configuration and
// are not excluded purely for having a leading dot.
func allowedDotDir(base string) bool {
	switch base {
	case ".github", ".circleci", ".config":
		return true
	default:
		return false
	}
}

// detectLanguage classifies a file by extension. Extensions the chunker
// has no parser for classify as "unknown" rather than being dropped: per
// §3's Data Model invariant, every SourceFile's language is either in the
// supported set or "unknown", and §4.3 counts unknown-language files
// during discovery even though the chunker skips them.
func detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extByLanguage[ext]; ok {
		return lang
	}
	return "unknown"
}

// IsTestFile reports whether path looks like a test file, by extension
// convention (heuristic shared with the teacher's isTestFile).
func IsTestFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "_test.go"):
		return true
	case strings.HasSuffix(base, ".test.js"), strings.HasSuffix(base, ".test.ts"),
		strings.HasSuffix(base, ".spec.js"), strings.HasSuffix(base, ".spec.ts"):
		return true
	case strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"):
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "tests" || part == "test" || part == "__tests__" {
			return true
		}
	}
	return false
}
