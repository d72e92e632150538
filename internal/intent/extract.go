package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// ExtractJSON returns the JSON object embedded in an LLM reply. It
// tolerates a surrounding code fence and prose before or after the
// object. The first balanced top-level object that is valid JSON wins,
// so a placeholder like {name} in the prose is skipped. When no balanced
// object is valid it returns the first balanced one, and when none is
// balanced it falls back to the span from the first '{' to the last '}'.
func ExtractJSON(reply string) (string, error) {
	s := stripCodeFence(reply)

	var first string
	for from := 0; ; {
		start, end, ok := nextObject(s, from)
		if !ok {
			break
		}
		obj := s[start:end]
		if json.Valid([]byte(obj)) {
			return obj, nil
		}
		if first == "" {
			first = obj
		}
		from = start + 1
	}
	if first != "" {
		return first, nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in reply", domain.ErrParse)
	}
	return s[start : end+1], nil
}

// stripCodeFence removes a leading ```json (or ```) line and a trailing
// ``` if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(rest, "json")
		}
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = rest
	}
	return strings.TrimSpace(s)
}

// nextObject scans s from byte from for the next complete top-level
// {...} and returns its bounds. Quotes are only tracked inside an object
// so stray quotes in prose do not confuse the scan. ASCII delimiters
// never occur inside multi-byte UTF-8 sequences, so iterating bytes is
// safe.
func nextObject(s string, from int) (start, end int, ok bool) {
	depth := 0
	start = -1
	inString, escape := false, false

	for i := from; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return start, i + 1, true
				}
			}
		}
	}
	return 0, 0, false
}
