// Package chunker implements the Semantic Parser & Chunker (§4.3). It
// dispatches by language to a Go AST-based parser (grounded on the
// teacher's internal/world/go_parser.go) or a tree-sitter-based parser for
// Python, JavaScript, and TypeScript (grounded on the teacher's
// internal/world/ast_treesitter.go extractGoSymbols pattern, generalized
// across grammars). Chunks below Config.MinChars are merged into
// neighboring chunks; chunks above Config.MaxChars are split on line
// boundaries.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// Config bounds chunk sizes during parsing (§4.3).
type Config struct {
	MinChars int
	MaxChars int
}

// DefaultConfig matches internal/config's chunking defaults.
func DefaultConfig() Config {
	return Config{MinChars: 40, MaxChars: 4000}
}

// rawChunk is an unmerged, unsplit extraction produced by a language
// extractor before size normalization and id assignment.
type rawChunk struct {
	Kind         gardenertypes.ChunkKind
	StartLine    int
	EndLine      int
	StartByte    int
	EndByte      int
	Text         string
	Dependencies []string
	Complexity   int
}

// extractor produces raw chunks for one language's source text.
type extractor func(content string) ([]rawChunk, error)

var extractors = map[string]extractor{
	"go":         extractGo,
	"python":     extractTreeSitter("python"),
	"javascript": extractTreeSitter("javascript"),
	"typescript": extractTreeSitter("typescript"),
}

// SupportedLanguages lists languages the chunker can parse.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(extractors))
	for l := range extractors {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// ChunkFile parses a single file's content into semantic chunks. A parse
// error in one file must not abort a larger ingest, so callers should treat
// a returned error as "skip this file" rather than a fatal condition
// (§4.3 edge cases).
func ChunkFile(projectID, filePath, language, content string, cfg Config) ([]gardenertypes.Chunk, error) {
	ext, ok := extractors[language]
	if !ok {
		return nil, errs.New(errs.KindUser, "unsupported language: "+language)
	}

	raws, err := ext(content)
	if err != nil {
		logging.Get(logging.CategoryChunker).Warn("parse failed for %s: %v", filePath, err)
		return nil, errs.Wrap(errs.KindIngest, "parse failed for "+filePath, err)
	}

	if len(raws) == 0 {
		raws = []rawChunk{fallbackBlock(content)}
	}

	normalized := normalizeSizes(raws, cfg)

	chunks := make([]gardenertypes.Chunk, 0, len(normalized))
	for _, rc := range normalized {
		id := chunkID(projectID, filePath, rc.Kind, rc.StartLine)
		chunks = append(chunks, gardenertypes.Chunk{
			ID:           id,
			ProjectID:    projectID,
			FilePath:     filePath,
			Language:     language,
			Kind:         rc.Kind,
			StartByte:    rc.StartByte,
			EndByte:      rc.EndByte,
			StartLine:    rc.StartLine,
			EndLine:      rc.EndLine,
			Complexity:   rc.Complexity,
			Dependencies: rc.Dependencies,
			Text:         rc.Text,
		})
	}
	return chunks, nil
}

// chunkID derives a stable chunk identifier from project id, file path,
// chunk kind, and start line (Open Question 1: resolved without a content
// hash, so a chunk keeps its id across reformatting-only edits as long as
// its start line is unchanged).
func chunkID(projectID, filePath string, kind gardenertypes.ChunkKind, startLine int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d", projectID, filePath, kind, startLine)
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// fallbackBlock treats an entire file as one block chunk when no
// finer-grained boundaries were found (§4.3 edge case: file with no
// recognizable declarations).
func fallbackBlock(content string) rawChunk {
	lines := splitLines(content)
	return rawChunk{
		Kind:      gardenertypes.ChunkBlock,
		StartLine: 1,
		EndLine:   len(lines),
		StartByte: 0,
		EndByte:   len(content),
		Text:      content,
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

// normalizeSizes merges consecutive chunks smaller than MinChars into their
// successor and splits chunks larger than MaxChars on line boundaries,
// preserving original order.
func normalizeSizes(raws []rawChunk, cfg Config) []rawChunk {
	sort.Slice(raws, func(i, j int) bool { return raws[i].StartLine < raws[j].StartLine })

	merged := make([]rawChunk, 0, len(raws))
	var pending *rawChunk
	for i := range raws {
		rc := raws[i]
		if pending != nil {
			pending.EndLine = rc.EndLine
			pending.EndByte = rc.EndByte
			pending.Text = pending.Text + "\n" + rc.Text
			pending.Dependencies = append(pending.Dependencies, rc.Dependencies...)
			if len(pending.Text) >= cfg.MinChars {
				merged = append(merged, *pending)
				pending = nil
			}
			continue
		}
		if len(rc.Text) < cfg.MinChars && cfg.MinChars > 0 {
			c := rc
			pending = &c
			continue
		}
		merged = append(merged, rc)
	}
	if pending != nil {
		merged = append(merged, *pending)
	}

	if cfg.MaxChars <= 0 {
		return merged
	}

	out := make([]rawChunk, 0, len(merged))
	for _, rc := range merged {
		out = append(out, splitOversized(rc, cfg.MaxChars)...)
	}
	return out
}

// splitOversized breaks a chunk into line-aligned pieces no larger than
// maxChars, each retaining the parent's kind and dependencies.
func splitOversized(rc rawChunk, maxChars int) []rawChunk {
	if len(rc.Text) <= maxChars {
		return []rawChunk{rc}
	}

	lines := splitLines(rc.Text)
	var parts []rawChunk
	var buf string
	lineOffset := rc.StartLine
	bufStartLine := lineOffset

	flush := func(endLine int) {
		if buf == "" {
			return
		}
		parts = append(parts, rawChunk{
			Kind:         rc.Kind,
			StartLine:    bufStartLine,
			EndLine:      endLine,
			StartByte:    rc.StartByte,
			EndByte:      rc.EndByte,
			Text:         buf,
			Dependencies: rc.Dependencies,
			Complexity:   rc.Complexity,
		})
		buf = ""
	}

	for i, line := range lines {
		candidate := buf
		if candidate != "" {
			candidate += "\n"
		}
		candidate += line
		if len(candidate) > maxChars && buf != "" {
			flush(lineOffset + i - 1)
			bufStartLine = lineOffset + i
			buf = line
			continue
		}
		buf = candidate
	}
	flush(rc.EndLine)

	if len(parts) == 0 {
		return []rawChunk{rc}
	}
	return parts
}
