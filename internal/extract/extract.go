// Package extract classifies raw subscription content and pulls node records
// out of it. Detection is an ordered chain of fallible attempts: structured
// document (Clash YAML / JSON) first, then a base64 blob, then plain link
// lines. Nothing here fails fatally; a source that matches no format yields
// an empty result with an UNRECOGNIZED_FORMAT diagnostic.
package extract

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/clashgen/clashgen/internal/model"
	"github.com/clashgen/clashgen/internal/sub"
)

// Result is the outcome of extracting one source. Candidates counts raw
// entries that looked like nodes before decoding; skipped items carry the
// failure reason so a bad line never silently disappears.
type Result struct {
	Nodes        []model.CanonicalNode
	Candidates   int
	Skipped      []model.SkippedLink
	Unrecognized bool
}

// Extract pulls node records out of raw source content.
func Extract(raw string, sourceTag string) Result {
	s := strings.TrimPrefix(raw, "\uFEFF")
	s = strings.TrimSpace(s)
	if s == "" {
		return Result{Unrecognized: true}
	}

	// 1) Structured document. YAML is a superset of JSON, so one parse
	// covers both Clash YAML and JSON node lists.
	if looksStructured(s) {
		if res, ok := extractStructured(s, sourceTag); ok {
			return res
		}
	}

	// 2) Whole-content base64 blob.
	if !strings.Contains(s, "://") {
		if decoded, err := decodeBlob(s); err == nil {
			return extractLines(decoded, sourceTag)
		}
	}

	// 3) Plain link list.
	return extractLines(s, sourceTag)
}

func looksStructured(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") ||
		strings.Contains(s, "proxies:")
}

type structuredDoc struct {
	Proxies []map[string]any `yaml:"proxies" json:"proxies"`
}

func extractStructured(s string, sourceTag string) (Result, bool) {
	var doc structuredDoc
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil || len(doc.Proxies) == 0 {
		return Result{}, false
	}

	res := Result{Candidates: len(doc.Proxies)}
	for _, entry := range doc.Proxies {
		node, err := nodeFromStructured(entry, sourceTag)
		if err != nil {
			res.Skipped = append(res.Skipped, skippedFrom(sourceTag, entryName(entry), err))
			continue
		}
		res.Nodes = append(res.Nodes, node)
	}
	return res, true
}

// decodeBlob base64-decodes the whole trimmed content and accepts the result
// only when it is valid UTF-8 and mostly printable.
func decodeBlob(s string) (string, error) {
	raw, err := sub.DecodeBase64(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.New("decoded content is not valid utf-8")
	}
	text := string(raw)
	if !mostlyPrintable(text) {
		return "", errors.New("decoded content is mostly non-printable")
	}
	return text, nil
}

func mostlyPrintable(s string) bool {
	if s == "" {
		return false
	}
	total, printable := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return printable*10 >= total*9
}

func extractLines(content string, sourceTag string) Result {
	var res Result
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") {
			continue
		}
		res.Candidates++
		node, err := sub.Decode(line, sourceTag)
		if err != nil {
			res.Skipped = append(res.Skipped, skippedFrom(sourceTag, line, err))
			continue
		}
		res.Nodes = append(res.Nodes, node)
	}
	if res.Candidates == 0 {
		res.Unrecognized = true
	}
	return res
}

func skippedFrom(sourceTag, link string, err error) model.SkippedLink {
	reason := model.CodeMalformedLink
	var de *sub.DecodeError
	var ee *entryError
	switch {
	case errors.As(err, &de):
		reason = de.AppError.Code
	case errors.As(err, &ee):
		reason = ee.code
	}
	if len(link) > 80 {
		link = link[:80]
	}
	return model.SkippedLink{Source: sourceTag, Link: link, Reason: reason}
}

func entryName(entry map[string]any) string {
	if v, ok := entry["name"].(string); ok {
		return v
	}
	return ""
}
