package comment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrMalformedTag is returned for an "@" line whose name is missing or invalid.
var ErrMalformedTag = errors.New("malformed tag")

const deprecatedPrefix = "Deprecated:"

var tagNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-]*$`)

// Parse converts raw comment text into a Comment.
//
// Text before the first tag is the description; lines of a paragraph are
// joined with a space and paragraphs are separated by a blank line. Every
// line starting with "@" opens a tag, and plain lines after a tag extend
// its value. A leading "Deprecated:" paragraph is recorded as the
// "deprecated" tag. Input may be Go comment text (as returned by
// ast.CommentGroup.Text) or a /** ... */ block.
//
// Empty input yields an empty Comment and no error.
func Parse(raw string) (Comment, error) {
	var (
		c      Comment
		paras  []string
		para   []string
		cont   = -1 // tag receiving continuation lines
		tagged bool
	)

	flush := func() {
		if len(para) > 0 {
			paras = append(paras, strings.Join(para, " "))
			para = nil
		}
	}

	for _, line := range splitLines(raw) {
		switch {
		case strings.HasPrefix(line, "@"):
			tag, err := parseTag(line)
			if err != nil {
				return Comment{}, err
			}
			flush()
			c.Tags = append(c.Tags, tag)
			cont = len(c.Tags) - 1
			tagged = true
		case line == "":
			flush()
			if !tagged {
				cont = -1
			}
		case cont >= 0:
			c.Tags[cont].Value = joinValue(c.Tags[cont].Value, line)
		case len(para) == 0 && strings.HasPrefix(line, deprecatedPrefix):
			c.Tags = append(c.Tags, Tag{
				Name:  "deprecated",
				Value: strings.TrimSpace(strings.TrimPrefix(line, deprecatedPrefix)),
			})
			cont = len(c.Tags) - 1
		default:
			para = append(para, line)
		}
	}
	flush()

	c.Description = strings.Join(paras, "\n\n")
	return c, nil
}

func parseTag(line string) (Tag, error) {
	body := strings.TrimPrefix(line, "@")
	name, value := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, value = body[:i], strings.TrimSpace(body[i:])
	}
	if !tagNameRe.MatchString(name) {
		return Tag{}, fmt.Errorf("%w: %q", ErrMalformedTag, line)
	}
	return Tag{Name: name, Value: value}, nil
}

func joinValue(v, line string) string {
	if v == "" {
		return line
	}
	return v + " " + line
}

// splitLines strips comment markers and surrounding whitespace from each line.
func splitLines(raw string) []string {
	text := strings.TrimSpace(raw)
	block := strings.HasPrefix(text, "/*")
	if block {
		text = strings.TrimLeft(strings.TrimPrefix(text, "/*"), "*")
		text = strings.TrimSuffix(text, "*/")
	}

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if block {
			l = strings.TrimPrefix(l, "*")
		} else {
			l = strings.TrimPrefix(l, "//")
		}
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}
