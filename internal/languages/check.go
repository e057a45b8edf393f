package languages

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxIssue is a parse problem found in emitted output.
type SyntaxIssue struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (i SyntaxIssue) String() string {
	return fmt.Sprintf("%d:%d: %s", i.Line, i.Column, i.Message)
}

// Check parses content with the tree-sitter grammar of lang. The boolean is
// false when no grammar is bundled for the language.
func (r *Registry) Check(lang string, content []byte) ([]SyntaxIssue, bool, error) {
	l, ok := r.Lookup(lang)
	if !ok {
		return nil, false, nil
	}
	grammar, ok := l.Grammar()
	if !ok {
		return nil, false, nil
	}

	p := sitter.NewParser()
	p.SetLanguage(grammar)
	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, true, fmt.Errorf("failed to parse %s output: %w", l.Name, err)
	}
	defer tree.Close()

	issues := make([]SyntaxIssue, 0)
	collectIssues(tree.RootNode(), &issues)
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Column < issues[j].Column
	})
	return issues, true, nil
}

func collectIssues(node *sitter.Node, issues *[]SyntaxIssue) {
	if node == nil {
		return
	}
	point := node.StartPoint()
	switch {
	case node.IsMissing():
		*issues = append(*issues, SyntaxIssue{
			Line:    int(point.Row) + 1,
			Column:  int(point.Column) + 1,
			Message: fmt.Sprintf("missing %s", node.Type()),
		})
		return
	case node.IsError():
		*issues = append(*issues, SyntaxIssue{
			Line:    int(point.Row) + 1,
			Column:  int(point.Column) + 1,
			Message: "syntax error",
		})
		return
	}
	if !node.HasError() {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectIssues(node.Child(i), issues)
	}
}
