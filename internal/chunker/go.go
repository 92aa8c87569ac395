package chunker

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
)

// extractGo walks a Go source file's declarations, grounded on the
// teacher's GoCodeParser.Parse in internal/world/go_parser.go: function and
// method declarations become ChunkFunction chunks, type declarations become
// ChunkClass chunks, and the leading import block becomes a single
// ChunkImport chunk.
func extractGo(content string) ([]rawChunk, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	src := []byte(content)
	var chunks []rawChunk

	if len(file.Imports) > 0 {
		first := file.Imports[0]
		last := file.Imports[len(file.Imports)-1]
		start := fset.Position(first.Pos())
		end := fset.Position(last.End())
		deps := make([]string, 0, len(file.Imports))
		for _, imp := range file.Imports {
			deps = append(deps, strings.Trim(imp.Path.Value, `"`))
		}
		chunks = append(chunks, rawChunk{
			Kind:         gardenertypes.ChunkImport,
			StartLine:    start.Line,
			EndLine:      end.Line,
			StartByte:    start.Offset,
			EndByte:      end.Offset,
			Text:         sliceSource(src, start.Offset, end.Offset),
			Dependencies: deps,
		})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			chunks = append(chunks, funcChunk(fset, src, d))
		case *ast.GenDecl:
			if d.Tok == token.TYPE {
				chunks = append(chunks, typeChunks(fset, src, d)...)
			}
		}
	}

	return chunks, nil
}

func funcChunk(fset *token.FileSet, src []byte, d *ast.FuncDecl) rawChunk {
	start := fset.Position(d.Pos())
	end := fset.Position(d.End())
	text := sliceSource(src, start.Offset, end.Offset)

	var deps []string
	ast.Inspect(d, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
				if ident, ok := sel.X.(*ast.Ident); ok {
					deps = append(deps, ident.Name+"."+sel.Sel.Name)
				}
			}
		}
		return true
	})

	return rawChunk{
		Kind:         gardenertypes.ChunkFunction,
		StartLine:    start.Line,
		EndLine:      end.Line,
		StartByte:    start.Offset,
		EndByte:      end.Offset,
		Text:         text,
		Dependencies: deps,
		Complexity:   complexityOf(d),
	}
}

func typeChunks(fset *token.FileSet, src []byte, d *ast.GenDecl) []rawChunk {
	var out []rawChunk
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		pos, end := d.Pos(), d.End()
		if len(d.Specs) > 1 {
			pos, end = ts.Pos(), ts.End()
		}
		start := fset.Position(pos)
		endPos := fset.Position(end)
		out = append(out, rawChunk{
			Kind:       gardenertypes.ChunkClass,
			StartLine:  start.Line,
			EndLine:    endPos.Line,
			StartByte:  start.Offset,
			EndByte:    endPos.Offset,
			Text:       sliceSource(src, start.Offset, endPos.Offset),
			Complexity: fieldCount(ts),
		})
	}
	return out
}

func fieldCount(ts *ast.TypeSpec) int {
	st, ok := ts.Type.(*ast.StructType)
	if !ok || st.Fields == nil {
		return 0
	}
	return len(st.Fields.List)
}

// complexityOf scores a function by nesting depth, branch count, and size,
// matching §4.3's "complexity score = nesting + branches + size" rule.
func complexityOf(d *ast.FuncDecl) int {
	if d.Body == nil {
		return 0
	}
	branches := 0
	maxDepth := 0

	var walk func(n ast.Node, depth int)
	walk = func(n ast.Node, depth int) {
		switch n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			branches++
			depth++
		}
		if depth > maxDepth {
			maxDepth = depth
		}
		ast.Inspect(n, func(child ast.Node) bool {
			if child == n || child == nil {
				return true
			}
			switch child.(type) {
			case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
				walk(child, depth)
				return false
			}
			return true
		})
	}
	walk(d.Body, 0)

	size := int(d.End() - d.Pos())
	return maxDepth + branches + size/200
}

func sliceSource(src []byte, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(src) {
		end = len(src)
	}
	if start > end {
		return ""
	}
	return string(src[start:end])
}
