package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/morozRed/tangle/internal/options"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	yaml "gopkg.in/yaml.v3"
)

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once

	mdHeaderArgsComment = regexp.MustCompile(`(?s)^\s*<!--\s*(header-args(?::[^:\s+]+)?)\+?:\s*(.*?)\s*-->\s*$`)
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New()
	})
	return markdownParserInstance
}

// ParseMarkdown builds a Document from Markdown text. Fenced code blocks
// carry their language and header arguments in the info string
// ("python :tangle out.py :name setup"); YAML front matter supplies
// document-wide header-args.
func ParseMarkdown(path, src string) (*Document, error) {
	doc := &Document{Path: path, Text: src, Format: FormatMarkdown}
	doc.Headings = []*Heading{newRoot(len(src))}

	masked, boundary, defaults, err := splitFrontMatter(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse front matter of %s: %w", path, err)
	}
	doc.Defaults = defaults

	source := []byte(masked)
	tree := getMarkdownParser().Parser().Parse(text.NewReader(source))

	var (
		current = doc.Root()
		seq     int
	)
	err = ast.Walk(tree, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Lines().Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			first := node.Lines().At(0)
			last := node.Lines().At(node.Lines().Len() - 1)
			start := lineStart(src, first.Start)
			closeHeadings(doc.Headings, node.Level, start)
			label, commented := markdownHeadingLabel(segmentsText(node.Lines(), source))
			h := &Heading{
				Label:     label,
				Level:     node.Level,
				Parent:    parentFor(doc.Headings, node.Level),
				Commented: commented,
				Start:     start,
			}
			doc.Headings = append(doc.Headings, h)
			current = h
			boundary = segmentLineEnd(src, last.Stop)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			raw := segmentsText(node.Lines(), source)
			if node.HasClosure() {
				raw += string(node.ClosureLine.Value(source))
			}
			if m := mdHeaderArgsComment.FindStringSubmatch(raw); m != nil {
				ha := headerArgsFor(m[1], m[2])
				if current.Level == 0 {
					doc.Defaults = append(doc.Defaults, ha)
				} else {
					current.Properties = append(current.Properties, ha)
				}
				switch {
				case node.HasClosure():
					boundary = segmentLineEnd(src, node.ClosureLine.Stop)
				case node.Lines().Len() > 0:
					boundary = segmentLineEnd(src, node.Lines().At(node.Lines().Len()-1).Stop)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			if f := markdownFragment(src, source, node, boundary); f != nil {
				attachFragment(current, f, &seq)
				boundary = f.End
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	closeHeadings(doc.Headings, 1, len(src))
	return doc, nil
}

func markdownFragment(src string, source []byte, node *ast.FencedCodeBlock, boundary int) *Fragment {
	if node.Info == nil {
		return nil
	}
	info := strings.TrimSpace(string(node.Info.Segment.Value(source)))
	lang, rest, _ := strings.Cut(info, " ")
	if lang == "" {
		return nil
	}
	header := options.Parse(rest)
	name := header[options.KeyName]
	delete(header, options.KeyName)

	openStart := lineStart(src, node.Info.Segment.Start)
	openEnd := lineEnd(src, node.Info.Segment.Stop)
	f := &Fragment{
		Language:  lang,
		Name:      name,
		Header:    header,
		Preamble:  strings.TrimSpace(src[min(boundary, openStart):openStart]),
		Start:     openStart,
		BodyStart: openEnd,
		BodyEnd:   openEnd,
		format:    FormatMarkdown,
	}
	if fence := strings.IndexAny(src[openStart:], "`~"); fence > 0 {
		f.prefix = src[openStart : openStart+fence]
	}
	closeStart := openEnd
	if lines := node.Lines(); lines.Len() > 0 {
		last := lines.At(lines.Len() - 1)
		f.BodyEnd = last.Stop
		closeStart = last.Stop
		if f.BodyEnd > f.BodyStart && src[f.BodyEnd-1] == '\n' {
			f.BodyEnd--
		}
		// Segments start after any list or blockquote indentation.
		var b strings.Builder
		f.indent = make([]lineIndent, lines.Len())
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
			f.indent[i] = lineIndent{trim: seg.Start - lineStart(src, seg.Start), pad: seg.Padding}
		}
		f.content = strings.TrimSuffix(b.String(), "\n")
	}
	f.Body = src[f.BodyStart:f.BodyEnd]
	f.End = lineEnd(src, closeStart)
	return f
}

func markdownHeadingLabel(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "COMMENT" || strings.HasPrefix(title, "COMMENT ") {
		return strings.TrimSpace(strings.TrimPrefix(title, "COMMENT")), true
	}
	return title, false
}

// splitFrontMatter blanks out a leading YAML front matter block (keeping
// offsets intact) and returns the header-args it declares.
func splitFrontMatter(src string) (string, int, []HeaderArgs, error) {
	if !strings.HasPrefix(src, "---\n") {
		return src, 0, nil, nil
	}
	closing := strings.Index(src[4:], "\n---")
	if closing < 0 {
		return src, 0, nil, nil
	}
	body := src[4 : 4+closing+1]
	end := lineEnd(src, 4+closing+1)

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(body), &meta); err != nil {
		return src, 0, nil, err
	}
	var defaults []HeaderArgs
	for _, key := range sortedKeys(meta) {
		lower := strings.ToLower(key)
		if lower != "header-args" && !strings.HasPrefix(lower, "header-args:") {
			continue
		}
		value, ok := meta[key].(string)
		if !ok {
			return src, 0, nil, fmt.Errorf("%s must be a string", key)
		}
		defaults = append(defaults, headerArgsFor(lower, value))
	}

	masked := []byte(src)
	for i := 0; i < end; i++ {
		if masked[i] != '\n' {
			masked[i] = ' '
		}
	}
	return string(masked), end, defaults, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// general layers before language-specific ones
	sort.Strings(keys)
	return keys
}

func segmentsText(lines *text.Segments, source []byte) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

func lineStart(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.LastIndexByte(src[:offset], '\n') + 1
}

func lineEnd(src string, offset int) int {
	if offset >= len(src) {
		return len(src)
	}
	idx := strings.IndexByte(src[offset:], '\n')
	if idx < 0 {
		return len(src)
	}
	return offset + idx + 1
}

// segmentLineEnd is lineEnd for a segment stop that may already sit just past
// the newline.
func segmentLineEnd(src string, stop int) int {
	if stop > 0 && stop <= len(src) && src[stop-1] == '\n' {
		return stop
	}
	return lineEnd(src, stop)
}
