// Package parser extracts the metadata header and subsections from seed documents.
package parser

import "strings"

const delim = "---"

// Header is the outcome of header parsing. Found is false when the document
// has no complete delimited block; Metadata is then empty and Body is the
// whole document.
type Header struct {
	Metadata map[string]string
	Body     string
	Found    bool
}

// ParseHeader splits an optional "---" block of "key: value" lines from
// the body. The block must open on the first line; both delimiters are
// lines consisting of exactly three dashes. It never fails: a missing or
// unterminated block yields an empty mapping, and lines without a colon
// are skipped.
func ParseHeader(content string) Header {
	empty := Header{Metadata: map[string]string{}, Body: content}

	first, rest, ok := strings.Cut(content, "\n")
	if !ok || strings.TrimSpace(first) != delim {
		return empty
	}

	meta := make(map[string]string)
	for {
		line, next, more := strings.Cut(rest, "\n")
		if strings.TrimSpace(line) == delim {
			body := ""
			if more {
				body = next
			}
			return Header{
				Metadata: meta,
				Body:     strings.TrimLeft(body, "\n\r"),
				Found:    true,
			}
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			if key = strings.TrimSpace(key); key != "" {
				meta[key] = strings.TrimSpace(value)
			}
		}
		if !more {
			return empty
		}
		rest = next
	}
}

// Section returns the text of the first subsection whose heading title is
// exactly title, up to the next heading of the same or a shallower level.
// The match is literal and case-sensitive. Lines inside fenced code blocks
// are never headings. The result is whitespace-trimmed.
func Section(body, title string) (string, bool) {
	lines := strings.Split(body, "\n")
	headings := headingLevels(lines)

	start, level := -1, 0
	for i, line := range lines {
		if headings[i] == 0 {
			continue
		}
		if _, text, _ := heading(line); text == title {
			start, level = i+1, headings[i]
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if lvl := headings[i]; lvl > 0 && lvl <= level {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n")), true
}

// headingLevels returns the ATX heading level of each line, 0 for
// non-headings and for lines inside ``` or ~~~ fences.
func headingLevels(lines []string) []int {
	levels := make([]int, len(lines))
	var fence string
	for i, line := range lines {
		marker := fenceMarker(line)
		switch {
		case fence != "":
			// A closing fence uses the same character, at least as long, with no info string.
			if marker != "" && marker[0] == fence[0] && len(marker) >= len(fence) &&
				strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), marker[:1])) == "" {
				fence = ""
			}
		case marker != "":
			fence = marker
		default:
			if lvl, _, ok := heading(line); ok {
				levels[i] = lvl
			}
		}
	}
	return levels
}

// fenceMarker returns the leading run of three or more backticks or tildes.
func fenceMarker(line string) string {
	line = strings.TrimLeft(line, " ")
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return ""
	}
	n := 0
	for n < len(line) && line[n] == line[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return line[:n]
}

// heading reports the level and title of a Markdown ATX heading line.
func heading(line string) (int, string, bool) {
	line = strings.TrimRight(line, " \t\r")
	lvl := 0
	for lvl < len(line) && line[lvl] == '#' {
		lvl++
	}
	if lvl == 0 || lvl > 6 {
		return 0, "", false
	}
	if lvl == len(line) {
		return lvl, "", true
	}
	if line[lvl] != ' ' && line[lvl] != '\t' {
		return 0, "", false
	}
	return lvl, strings.TrimSpace(line[lvl:]), true
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
