package llm

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// previewLimit bounds the response preview carried in extraction errors.
const previewLimit = 300

// Pre-compiled regex patterns for JSON extraction from model responses.
var (
	// fencedBlockPattern matches JSON inside markdown code fences,
	// with or without a language tag: ```json { ... } ``` or ``` { ... } ```
	fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(\\{.*?\\})\\s*```")

	// candidatePattern matches balanced-brace JSON object candidates,
	// tolerating one level of nesting. Non-greedy by construction: the
	// character classes exclude braces, so each match stops at the first
	// balanced close.
	candidatePattern = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

	// trailingCommaPattern matches trailing commas before ] or }.
	// Models produce these routinely; stripping them rescues otherwise
	// valid objects.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Extract recovers a single JSON object from a raw model response.
//
// Model output is unreliable: the same agent may answer with bare JSON,
// JSON inside a code fence, or JSON buried in prose that also echoes an
// example object. Strategies are applied in order and the first object
// that parses AND contains every required key wins:
//
//  1. Parse the trimmed text directly.
//  2. Strip markdown code fences, then parse.
//  3. Scan for balanced-brace candidates and try each in order of
//     appearance.
//
// requiredKeys is the only thing that disambiguates multiple JSON-looking
// fragments in one response; callers must always pass the key set they
// expect. With an empty key set, the first parseable object wins.
func Extract(raw string, requiredKeys []string) (map[string]any, error) {
	// Strategy 1: direct parse.
	if data, ok := tryParse(strings.TrimSpace(raw), requiredKeys); ok {
		return data, nil
	}

	// Strategy 2: unwrap a fenced block, or failing that, drop fence
	// markers wholesale and retry.
	if m := fencedBlockPattern.FindStringSubmatch(raw); len(m) > 1 {
		if data, ok := tryParse(m[1], requiredKeys); ok {
			return data, nil
		}
	}
	defenced := strings.ReplaceAll(raw, "```json", "")
	defenced = strings.ReplaceAll(defenced, "```", "")
	if data, ok := tryParse(strings.TrimSpace(defenced), requiredKeys); ok {
		return data, nil
	}

	// Strategy 3: scan candidates in order of appearance.
	for _, candidate := range candidatePattern.FindAllString(raw, -1) {
		if data, ok := tryParse(candidate, requiredKeys); ok {
			return data, nil
		}
	}

	return nil, &ExtractionError{
		RequiredKeys: requiredKeys,
		Preview:      preview(raw),
	}
}

// tryParse attempts to parse s as a JSON object and checks required keys.
// Trailing commas are stripped before parsing as a cleanup tolerance.
func tryParse(s string, requiredKeys []string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	cleaned := trailingCommaPattern.ReplaceAllString(s, "$1")

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	for _, key := range requiredKeys {
		if _, ok := data[key]; !ok {
			return nil, false
		}
	}
	return data, true
}

// preview returns at most the first previewLimit bytes of s, trimmed back
// to a rune boundary so the error message stays valid UTF-8.
func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
