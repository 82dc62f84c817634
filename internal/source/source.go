// Package source pulls content items out of the host CMS. The pipeline
// consumes items through the ContentSource contract and never reads
// ambient CMS state directly.
package source

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/domain"
)

// ContentSource yields content items of one registered type. Items are
// never mutated by the caller.
type ContentSource interface {
	ListItems(ctx context.Context, typeName string, limit int) ([]domain.ContentItem, error)
}

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spacesRe = regexp.MustCompile(`[ \t]+`)
)

// StripHTML removes markup and decodes entities, collapsing runs of
// spaces. Newlines are kept so sentence chunking still sees paragraph
// structure.
func StripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ExtractText applies an extraction rule to one raw item. A custom
// extractor wins; a field list pulls the named fields; otherwise the
// default extraction is title plus content.
func ExtractText(rule config.Rule, raw map[string]any) string {
	if rule.Custom() {
		return strings.TrimSpace(rule.Extractor(raw))
	}

	fields := rule.Fields
	if len(fields) == 0 {
		fields = []string{"title", "content"}
	}

	var parts []string
	for _, f := range fields {
		if v := renderedString(raw[f]); v != "" {
			parts = append(parts, v)
		}
	}
	return StripHTML(strings.Join(parts, "\n\n"))
}

// renderedString unwraps WordPress's {"rendered": "..."} envelopes and
// plain string fields.
func renderedString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if r, ok := t["rendered"].(string); ok {
			return r
		}
	}
	return ""
}
