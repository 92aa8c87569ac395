package chunker

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
)

// nodeKinds maps the tree-sitter node type names that mark a chunk boundary
// in each grammar to the ChunkKind they represent. Grounded on the
// teacher's extractGoSymbols switch over "function_declaration" /
// "method_declaration" / "type_declaration" in
// internal/world/ast_treesitter.go, extended with the Python and
// JS/TS grammars' equivalents.
var nodeKinds = map[string]map[string]gardenertypes.ChunkKind{
	"python": {
		"function_definition": gardenertypes.ChunkFunction,
		"class_definition":    gardenertypes.ChunkClass,
		"import_statement":    gardenertypes.ChunkImport,
		"import_from_statement": gardenertypes.ChunkImport,
	},
	"javascript": {
		"function_declaration":    gardenertypes.ChunkFunction,
		"method_definition":       gardenertypes.ChunkFunction,
		"arrow_function":          gardenertypes.ChunkFunction,
		"class_declaration":       gardenertypes.ChunkClass,
		"import_statement":        gardenertypes.ChunkImport,
	},
	"typescript": {
		"function_declaration": gardenertypes.ChunkFunction,
		"method_definition":    gardenertypes.ChunkFunction,
		"class_declaration":    gardenertypes.ChunkClass,
		"interface_declaration": gardenertypes.ChunkClass,
		"import_statement":     gardenertypes.ChunkImport,
	},
}

func grammarFor(lang string) *sitter.Language {
	switch lang {
	case "python":
		return python.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	default:
		return nil
	}
}

// extractTreeSitter returns an extractor bound to one tree-sitter grammar.
// It walks the parse tree top-down and emits a rawChunk for every
// boundary-marking node, then keeps descending into it, so methods and
// nested functions inside a class body surface as their own function
// chunks in addition to the enclosing class chunk (whose text also
// contains them).
func extractTreeSitter(lang string) extractor {
	kinds := nodeKinds[lang]
	grammar := grammarFor(lang)

	return func(content string) ([]rawChunk, error) {
		src := []byte(content)
		parser := sitter.NewParser()
		parser.SetLanguage(grammar)

		tree, err := parser.ParseCtx(context.Background(), nil, src)
		if err != nil {
			return nil, err
		}
		root := tree.RootNode()

		var chunks []rawChunk
		var walk func(n *sitter.Node)
		walk = func(n *sitter.Node) {
			if n == nil {
				return
			}
			if kind, ok := kinds[n.Type()]; ok {
				chunks = append(chunks, chunkFromNode(n, src, kind))
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i))
			}
		}
		walk(root)

		return chunks, nil
	}
}

func chunkFromNode(n *sitter.Node, src []byte, kind gardenertypes.ChunkKind) rawChunk {
	start := n.StartPoint()
	end := n.EndPoint()
	text := n.Content(src)

	return rawChunk{
		Kind:         kind,
		StartLine:    int(start.Row) + 1,
		EndLine:      int(end.Row) + 1,
		StartByte:    int(n.StartByte()),
		EndByte:      int(n.EndByte()),
		Text:         text,
		Dependencies: referencedNames(n, src),
		Complexity:   complexityOfNode(n),
	}
}

// referencedNames collects identifier text from call-like nodes beneath n,
// used as a lightweight dependency list without full symbol resolution.
func referencedNames(n *sitter.Node, src []byte) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" || n.Type() == "call" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				names = append(names, strings.TrimSpace(fn.Content(src)))
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(n)
	return names
}

// complexityOfNode scores a node by descendant branch-like nodes and its
// byte size, matching the same "nesting + branches + size" rule used for Go
// (§4.3).
func complexityOfNode(n *sitter.Node) int {
	branches := 0
	var maxDepth func(n *sitter.Node, depth int) int
	maxDepth = func(n *sitter.Node, depth int) int {
		best := depth
		switch n.Type() {
		case "if_statement", "for_statement", "while_statement", "for_in_statement", "switch_statement", "try_statement":
			branches++
			depth++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if d := maxDepth(n.Child(i), depth); d > best {
				best = d
			}
		}
		return best
	}
	depth := maxDepth(n, 0)
	size := int(n.EndByte() - n.StartByte())
	return depth + branches + size/200
}
