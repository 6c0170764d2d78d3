package phplsp

import (
	"regexp"
	"strings"
)

// ParsePhpDoc parses a raw `/** ... */` comment block into structured tags,
// per SPEC_FULL.md §4.2. The stripping/tag-split approach is grounded on
// doITmagic-rag-code-mcp's phpdoc.go; the tag grammar matches spec.md's
// exact rule set rather than that reference's simpler set.
func ParsePhpDoc(raw string) *PhpDoc {
	lines := stripCommentLines(raw)

	doc := &PhpDoc{}
	var summary []string
	inSummary := true

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "@") {
			inSummary = false
			parseTag(trimmed, doc)
			continue
		}
		if inSummary && trimmed != "" {
			summary = append(summary, trimmed)
		}
	}
	doc.Summary = strings.Join(summary, " ")
	return doc
}

// stripCommentLines removes /** */ delimiters and leading `*` decoration
// from each line, mirroring doITmagic's phpdoc.go line-stripping.
func stripCommentLines(raw string) []string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")

	rawLines := strings.Split(text, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimPrefix(l, " ")
		lines = append(lines, l)
	}
	return lines
}

var (
	paramTagRe    = regexp.MustCompile(`^@param\s+(\S+)\s+\$(\w+)(?:\s+(.*))?$`)
	paramNoTypeRe = regexp.MustCompile(`^@param\s+\$(\w+)(?:\s+(.*))?$`)
	returnTagRe   = regexp.MustCompile(`^@return\s+(\S+)(?:\s+(.*))?$`)
	varTagRe      = regexp.MustCompile(`^@var\s+(\S+)(?:\s+\$(\w+))?(?:\s+(.*))?$`)
	throwsTagRe   = regexp.MustCompile(`^@throws\s+(\S+)(?:\s+(.*))?$`)
	propertyTagRe = regexp.MustCompile(`^@property(-read|-write)?\s+(\S+)\s+\$(\w+)(?:\s+(.*))?$`)
	methodTagRe   = regexp.MustCompile(`^@method\s+(static\s+)?(?:(\S+)\s+)?(\w+)\s*\([^)]*\)(?:\s*(.*))?$`)
)

func parseTag(line string, doc *PhpDoc) {
	switch {
	case strings.HasPrefix(line, "@param"):
		if m := paramTagRe.FindStringSubmatch(line); m != nil {
			doc.Params = append(doc.Params, PhpDocParam{Type: m[1], Name: m[2], Description: m[3]})
			return
		}
		if m := paramNoTypeRe.FindStringSubmatch(line); m != nil {
			doc.Params = append(doc.Params, PhpDocParam{Name: m[1], Description: m[2]})
		}
	case strings.HasPrefix(line, "@return"):
		if m := returnTagRe.FindStringSubmatch(line); m != nil {
			doc.ReturnType = m[1]
		}
	case strings.HasPrefix(line, "@var"):
		if m := varTagRe.FindStringSubmatch(line); m != nil {
			doc.VarType = m[1]
			doc.VarName = m[2]
		}
	case strings.HasPrefix(line, "@throws"):
		if m := throwsTagRe.FindStringSubmatch(line); m != nil {
			doc.Throws = append(doc.Throws, m[1])
		}
	case strings.HasPrefix(line, "@deprecated"):
		doc.HasDeprecated = true
		doc.Deprecated = strings.TrimSpace(strings.TrimPrefix(line, "@deprecated"))
	case strings.HasPrefix(line, "@property"):
		if m := propertyTagRe.FindStringSubmatch(line); m != nil {
			doc.Properties = append(doc.Properties, PhpDocProperty{
				Type:        m[2],
				Name:        m[3],
				Description: m[4],
				ReadOnly:    m[1] == "-read",
				WriteOnly:   m[1] == "-write",
			})
		}
	case strings.HasPrefix(line, "@method"):
		if m := methodTagRe.FindStringSubmatch(line); m != nil {
			doc.Methods = append(doc.Methods, PhpDocMethod{
				Static:      strings.TrimSpace(m[1]) == "static",
				ReturnType:  m[2],
				Name:        m[3],
				Description: m[4],
			})
		}
	}
}
