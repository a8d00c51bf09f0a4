package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a response holds no JSON object or array.
var ErrNoJSON = errors.New("no JSON found in response")

// Repairs for the syntax mistakes models make most often. They are applied
// in order and only when a strict decode has already failed.
var repairs = []struct {
	re   *regexp.Regexp
	repl string
}{
	// "a": "x"\n"b": -> "a": "x",\n"b":
	{regexp.MustCompile(`(")\s*\n\s*("[\w][^"]*"\s*:)`), `$1, $2`},
	// 12\n"b": -> 12,\n"b":
	{regexp.MustCompile(`(\d|true|false|null)\s*\n\s*("[\w][^"]*"\s*:)`), `$1, $2`},
	// }\n"b" -> },\n"b"
	{regexp.MustCompile(`([}\]])\s*\n?\s*("[\w])`), `$1, $2`},
	// [1, 2,] -> [1, 2]
	{regexp.MustCompile(`,\s*([}\]])`), `$1`},
	// {'key': -> {"key":
	{regexp.MustCompile(`([{,]\s*)'(\w+)'(\s*:)`), `$1"$2"$3`},
}

var singleQuotedValue = regexp.MustCompile(`(:\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]])`)

// ExtractJSON pulls the first JSON value out of a model response and decodes
// it into T. Markdown fences and trailing prose are ignored; common syntax
// slips are repaired before giving up.
func ExtractJSON[T any](response string) (T, error) {
	var result T

	body := stripFences(response)
	if body == "" {
		return result, ErrNoJSON
	}

	start := strings.IndexAny(body, "{[")
	if start < 0 {
		var quoted string
		if err := json.Unmarshal([]byte(body), &quoted); err == nil && quoted != body {
			return ExtractJSON[T](quoted)
		}
		return result, ErrNoJSON
	}
	body = body[start:]

	firstErr := decodeFirst(body, &result)
	if firstErr == nil {
		return result, nil
	}

	candidates := []string{repair(body)}
	if strings.Contains(body, `\"`) {
		unescaped := strings.NewReplacer(`\"`, `"`, `\n`, "\n").Replace(body)
		candidates = append(candidates, unescaped, repair(unescaped))
	}
	for _, c := range candidates {
		var attempt T
		if err := decodeFirst(c, &attempt); err == nil {
			return attempt, nil
		}
	}
	return result, fmt.Errorf("parse JSON: %w", firstErr)
}

// ExtractValue is ExtractJSON into a generic value, for callers that feed
// the result to a normalizer.
func ExtractValue(response string) (any, error) {
	return ExtractJSON[any](response)
}

// decodeFirst decodes one JSON value and ignores whatever follows it.
func decodeFirst(s string, v any) error {
	return json.NewDecoder(strings.NewReader(s)).Decode(v)
}

func repair(s string) string {
	out := escapeControlChars(s)
	for _, r := range repairs {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	out = singleQuotedValue.ReplaceAllStringFunc(out, func(match string) string {
		parts := singleQuotedValue.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		value := strings.ReplaceAll(parts[2], `\'`, `'`)
		value = strings.ReplaceAll(value, `"`, `\"`)
		return parts[1] + `"` + value + `"` + parts[3]
	})
	return closeTruncated(out)
}

// escapeControlChars escapes raw control characters that appear inside
// string literals.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				fmt.Fprintf(&b, `\u%04x`, c)
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closeTruncated terminates an unterminated string and closes any open
// arrays and objects, innermost first.
func closeTruncated(s string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			stack = append(stack, c)
		case (c == '}' || c == ']') && len(stack) > 0:
			stack = stack[:len(stack)-1]
		}
	}
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
