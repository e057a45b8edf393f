package options

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// TangleKind says whether and where a fragment is tangled.
type TangleKind int

const (
	TangleNo TangleKind = iota
	TangleYes
	TanglePath
)

func (k TangleKind) String() string {
	switch k {
	case TangleNo:
		return "no"
	case TangleYes:
		return "yes"
	case TanglePath:
		return "path"
	default:
		return "unknown"
	}
}

// TangleSpec is the parsed value of the tangle option.
type TangleSpec struct {
	Kind TangleKind
	Path string
}

// ParseTangle interprets a tangle value; an empty value means the option was
// absent.
func ParseTangle(value string) TangleSpec {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "no", "nil":
		return TangleSpec{Kind: TangleNo}
	case "yes", "t":
		return TangleSpec{Kind: TangleYes}
	default:
		return TangleSpec{Kind: TanglePath, Path: value}
	}
}

// Context names the consumer a fragment body is prepared for.
type Context int

const (
	ContextTangle Context = iota
	ContextExport
	ContextEval
)

func (c Context) String() string {
	switch c {
	case ContextTangle:
		return "tangle"
	case ContextExport:
		return "export"
	case ContextEval:
		return "eval"
	default:
		return "unknown"
	}
}

// Action is what happens to noweb markers for a given mode and context.
type Action int

const (
	ActionVerbatim Action = iota
	ActionExpand
	ActionStrip
)

// NowebMode is the closed set of noweb option values.
type NowebMode int

const (
	NowebNo NowebMode = iota
	NowebYes
	NowebTangle
	NowebStrip
	NowebNoExport
	NowebStripExport
	NowebStripTangle
	NowebEval
)

var nowebNames = map[NowebMode]string{
	NowebNo:          "no",
	NowebYes:         "yes",
	NowebTangle:      "tangle",
	NowebStrip:       "strip",
	NowebNoExport:    "no-export",
	NowebStripExport: "strip-export",
	NowebStripTangle: "strip-tangle",
	NowebEval:        "eval",
}

func (m NowebMode) String() string {
	if name, ok := nowebNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseNoweb converts a noweb option value. Empty means "no".
func ParseNoweb(value string) (NowebMode, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return NowebNo, nil
	}
	for mode, name := range nowebNames {
		if name == value {
			return mode, nil
		}
	}
	return NowebNo, fmt.Errorf("unsupported noweb value %q", value)
}

// Action reports how markers are treated when the body is prepared for ctx.
func (m NowebMode) Action(ctx Context) Action {
	switch m {
	case NowebYes:
		return ActionExpand
	case NowebTangle:
		if ctx == ContextTangle {
			return ActionExpand
		}
	case NowebStrip:
		return ActionStrip
	case NowebNoExport:
		if ctx != ContextExport {
			return ActionExpand
		}
	case NowebStripExport:
		if ctx == ContextExport {
			return ActionStrip
		}
		return ActionExpand
	case NowebStripTangle:
		if ctx == ContextTangle {
			return ActionStrip
		}
		return ActionExpand
	case NowebEval:
		if ctx == ContextEval {
			return ActionExpand
		}
	}
	return ActionVerbatim
}

// CommentMode selects the traceability annotation written around fragments.
type CommentMode int

const (
	CommentNone CommentMode = iota
	CommentLink
	CommentNoweb
	CommentOrg
	CommentBoth
)

func (m CommentMode) String() string {
	switch m {
	case CommentNone:
		return "none"
	case CommentLink:
		return "link"
	case CommentNoweb:
		return "noweb"
	case CommentOrg:
		return "org"
	case CommentBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Links reports whether the mode writes link markers around the fragment.
func (m CommentMode) Links() bool {
	return m == CommentLink || m == CommentNoweb || m == CommentBoth
}

// ParseComments converts a comments option value. Empty means "none".
func ParseComments(value string) (CommentMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "no", "none":
		return CommentNone, nil
	case "yes", "link":
		return CommentLink, nil
	case "noweb":
		return CommentNoweb, nil
	case "org":
		return CommentOrg, nil
	case "both":
		return CommentBoth, nil
	default:
		return CommentNone, fmt.Errorf("unsupported comments value %q", value)
	}
}

// ParseBool accepts yes/no style flags. Empty returns def.
func ParseBool(value string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def, nil
	case "yes", "t", "true", "on":
		return true, nil
	case "no", "nil", "false", "off":
		return false, nil
	default:
		return def, fmt.Errorf("expected yes or no, got %q", value)
	}
}

// ParseFileMode reads permission bits written as o755, #o755, 0755, 755,
// (identity #o755) or rwxr-xr-x. Empty returns 0.
func ParseFileMode(value string) (fs.FileMode, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, nil
	}
	if strings.HasPrefix(raw, "(identity") && strings.HasSuffix(raw, ")") {
		raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "(identity"), ")"))
	}
	if len(raw) == 9 && strings.Trim(raw, "rwx-") == "" {
		var mode fs.FileMode
		for i, ch := range raw {
			if ch != '-' {
				mode |= 1 << uint(8-i)
			}
		}
		return mode, nil
	}
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(raw, "o")
	n, err := strconv.ParseUint(raw, 8, 32)
	if err != nil || n > 0o7777 {
		return 0, fmt.Errorf("invalid tangle-mode %q", value)
	}
	return fs.FileMode(n), nil
}
