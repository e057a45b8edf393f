package document

import (
	"regexp"
	"strings"

	"github.com/morozRed/tangle/internal/options"
)

var (
	orgHeading      = regexp.MustCompile(`^(\*+)[ \t]+(.*?)[ \t]*$`)
	orgTags         = regexp.MustCompile(`[ \t]+(:[[:alnum:]_@#%:]+:)$`)
	orgTodo         = regexp.MustCompile(`^(TODO|DONE)[ \t]+`)
	orgPriority     = regexp.MustCompile(`^\[#[A-Za-z0-9]\][ \t]*`)
	orgProperty     = regexp.MustCompile(`(?i)^[ \t]*#\+property:[ \t]*(header-args(?::[^ \t+]+)?)\+?[ \t]+(.*)$`)
	orgName         = regexp.MustCompile(`(?i)^[ \t]*#\+name:[ \t]*(.*?)[ \t]*$`)
	orgBeginSrc     = regexp.MustCompile(`(?i)^[ \t]*(#[ \t]+)?#\+begin_src(?:[ \t]+(\S+))?[ \t]*(.*)$`)
	orgEndSrc       = regexp.MustCompile(`(?i)^[ \t]*(#[ \t]+)?#\+end_src[ \t]*$`)
	orgBeginComment = regexp.MustCompile(`(?i)^[ \t]*#\+begin_comment\b`)
	orgEndComment   = regexp.MustCompile(`(?i)^[ \t]*#\+end_comment\b`)
	orgDrawerStart  = regexp.MustCompile(`(?i)^[ \t]*:properties:[ \t]*$`)
	orgDrawerEnd    = regexp.MustCompile(`(?i)^[ \t]*:end:[ \t]*$`)
	orgDrawerEntry  = regexp.MustCompile(`^[ \t]*:([^:\s]+(?::[^:\s+]+)?)\+?:[ \t]*(.*)$`)
	orgPlanning     = regexp.MustCompile(`^[ \t]*(SCHEDULED|DEADLINE|CLOSED):`)
)

type line struct {
	text  string
	start int
	end   int // offset just past the line's newline (or len(text) at EOF)
}

func splitLines(text string) []line {
	var out []line
	start := 0
	for start < len(text) {
		idx := strings.IndexByte(text[start:], '\n')
		if idx < 0 {
			out = append(out, line{text: text[start:], start: start, end: len(text)})
			break
		}
		out = append(out, line{text: text[start : start+idx], start: start, end: start + idx + 1})
		start += idx + 1
	}
	return out
}

// ParseOrg builds a Document from Org text.
func ParseOrg(path, text string) *Document {
	doc := &Document{Path: path, Text: text, Format: FormatOrg}
	root := newRoot(len(text))
	doc.Headings = []*Heading{root}

	lines := splitLines(text)
	var (
		current      = root
		seq          int
		commentDepth int
		pendingName  string
		nameStart    = -1
		boundary     int
	)

	for i := 0; i < len(lines); i++ {
		ln := lines[i]

		if m := orgHeading.FindStringSubmatch(ln.text); m != nil {
			level := len(m[1])
			closeHeadings(doc.Headings, level, ln.start)
			label, commented := orgHeadingLabel(m[2])
			h := &Heading{
				Label:     label,
				Level:     level,
				Parent:    parentFor(doc.Headings, level),
				Commented: commented,
				Start:     ln.start,
			}
			doc.Headings = append(doc.Headings, h)
			current = h
			commentDepth = 0
			pendingName, nameStart = "", -1
			boundary = ln.end
			i = parseOrgDrawer(lines, i+1, h, &boundary) - 1
			continue
		}

		if m := orgProperty.FindStringSubmatch(ln.text); m != nil {
			doc.Defaults = append(doc.Defaults, headerArgsFor(m[1], m[2]))
			boundary = ln.end
			continue
		}
		if orgBeginComment.MatchString(ln.text) {
			commentDepth++
			continue
		}
		if orgEndComment.MatchString(ln.text) {
			if commentDepth > 0 {
				commentDepth--
			}
			continue
		}
		if m := orgName.FindStringSubmatch(ln.text); m != nil {
			pendingName, nameStart = m[1], ln.start
			continue
		}
		if m := orgBeginSrc.FindStringSubmatch(ln.text); m != nil {
			blockStart := ln.start
			if nameStart >= 0 {
				blockStart = nameStart
			}
			lang, args := m[2], m[3]
			if strings.HasPrefix(lang, ":") {
				lang, args = "", lang+" "+args
			}
			f := &Fragment{
				Language:  lang,
				Name:      pendingName,
				Header:    options.Parse(args),
				Commented: m[1] != "" || commentDepth > 0,
				Preamble:  strings.TrimSpace(text[min(boundary, blockStart):blockStart]),
				Start:     blockStart,
				BodyStart: ln.end,
				format:    FormatOrg,
			}
			end := i + 1
			for end < len(lines) && !orgEndSrc.MatchString(lines[end].text) {
				end++
			}
			if end < len(lines) {
				f.BodyEnd = lines[end].start
				f.End = lines[end].end
			} else {
				f.BodyEnd = len(text)
				f.End = len(text)
			}
			if f.BodyEnd > f.BodyStart && text[f.BodyEnd-1] == '\n' {
				f.BodyEnd--
			}
			if f.BodyEnd < f.BodyStart {
				f.BodyEnd = f.BodyStart
			}
			f.Body = text[f.BodyStart:f.BodyEnd]
			attachFragment(current, f, &seq)
			pendingName, nameStart = "", -1
			boundary = f.End
			i = end
			continue
		}
		if strings.TrimSpace(ln.text) != "" {
			pendingName, nameStart = "", -1
		}
	}
	closeHeadings(doc.Headings, 1, len(text))
	return doc
}

// orgHeadingLabel strips the COMMENT keyword, TODO state, priority cookie
// and tags from a heading title.
func orgHeadingLabel(title string) (string, bool) {
	title = orgTodo.ReplaceAllString(title, "")
	title = orgPriority.ReplaceAllString(title, "")
	commented := false
	if title == "COMMENT" || strings.HasPrefix(title, "COMMENT ") {
		commented = true
		title = strings.TrimSpace(strings.TrimPrefix(title, "COMMENT"))
	}
	title = orgTags.ReplaceAllString(title, "")
	return strings.TrimSpace(title), commented
}

// parseOrgDrawer consumes planning lines and a property drawer following a
// heading and returns the index of the first line after them.
func parseOrgDrawer(lines []line, i int, h *Heading, boundary *int) int {
	for i < len(lines) && orgPlanning.MatchString(lines[i].text) {
		*boundary = lines[i].end
		i++
	}
	if i >= len(lines) || !orgDrawerStart.MatchString(lines[i].text) {
		return i
	}
	for j := i + 1; j < len(lines); j++ {
		if orgDrawerEnd.MatchString(lines[j].text) {
			*boundary = lines[j].end
			return j + 1
		}
		m := orgDrawerEntry.FindStringSubmatch(lines[j].text)
		if m == nil {
			continue
		}
		key := strings.TrimSuffix(strings.ToLower(m[1]), "+")
		if key == "header-args" || strings.HasPrefix(key, "header-args:") {
			h.Properties = append(h.Properties, headerArgsFor(key, m[2]))
		}
	}
	return i
}

func headerArgsFor(key, raw string) HeaderArgs {
	ha := HeaderArgs{Args: options.Parse(raw)}
	if _, lang, ok := strings.Cut(strings.ToLower(key), ":"); ok {
		ha.Language = lang
	}
	return ha
}
