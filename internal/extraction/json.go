package extraction

import (
	"errors"
	"strings"
)

// ErrNoJSONObject indicates the model response contained no parseable JSON.
var ErrNoJSONObject = errors.New("no JSON object in response")

// FirstJSONObject extracts the first balanced top-level JSON object from a
// free-text model response. The model is instructed to answer with pure JSON
// but routinely wraps it in prose or code fences.
func FirstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}
