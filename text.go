package fcs

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// textSegment is the result of tokenizing a TEXT (or ANALYSIS) byte range:
// the delimiter byte used, the keywords in file order (already
// normalized), and the key/value map built from them.
type textSegment struct {
	delimiter byte
	keywords  []string
	kv        map[string]string
	warnings  []string
}

// parseTextSegment tokenizes the delimiter-separated keyword/value grammar
// shared by the TEXT and ANALYSIS segments (spec.md §4.2). The first byte
// of r is the delimiter; a doubled delimiter inside a token is an escaped
// literal delimiter byte, honored uniformly for keys and values.
func parseTextSegment(r io.Reader) (*textSegment, error) {
	br := bufio.NewReader(r)
	delimiter, err := br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty segment", ErrMalformedText)
		}
		return nil, err
	}

	seg := &textSegment{
		delimiter: delimiter,
		keywords:  make([]string, 0),
		kv:        make(map[string]string),
	}

	for {
		key, ok, err := readToken(br, delimiter)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Clean end of segment: nothing but a trailing delimiter (or
			// nothing at all) remains. Tolerated per spec.md §4.2.
			break
		}

		value, ok, err := readToken(br, delimiter)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: odd number of tokens, key %q has no value", ErrMalformedText, key)
		}

		normalizedKey := normalizeKeyword(key)
		if _, dup := seg.kv[normalizedKey]; dup {
			seg.warnings = append(seg.warnings, fmt.Sprintf("duplicate keyword %q, last value wins", normalizedKey))
		} else {
			seg.keywords = append(seg.keywords, normalizedKey)
		}
		seg.kv[normalizedKey] = value
	}

	return seg, nil
}

// readToken reads one logical token up to (but not including) an
// unescaped delimiter, honoring the doubled-delimiter escape rule. It
// returns ok=false if the reader is exhausted before any token bytes (or
// only trailing delimiters) are found.
func readToken(br *bufio.Reader, delimiter byte) (string, bool, error) {
	var sb strings.Builder
	sawAny := false

	for {
		chunk, err := br.ReadString(delimiter)
		if err != nil {
			if err == io.EOF {
				if chunk == "" {
					if !sawAny {
						return "", false, nil
					}
					return sb.String(), true, nil
				}
				// Trailing chunk with no terminating delimiter: the
				// segment ended mid-token.
				return "", false, fmt.Errorf("%w: unterminated token %q", ErrMalformedText, chunk)
			}
			return "", false, err
		}

		sawAny = true
		// chunk ends with the delimiter; strip it before deciding whether
		// this is an escape (doubled delimiter) or the token boundary.
		sb.WriteString(chunk[:len(chunk)-1])

		next, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				// Delimiter was the very last byte of the segment: token
				// boundary, not an escape.
				return sb.String(), true, nil
			}
			return "", false, err
		}
		if next != delimiter {
			_ = br.UnreadByte()
			return sb.String(), true, nil
		}
		// Doubled delimiter: append the literal delimiter byte and keep
		// reading this same token.
		sb.WriteByte(delimiter)
	}
}

// normalizeKeyword case-folds a keyword to lower case while preserving any
// leading '$', matching the value-is-case-preserving / key-is-case-folded
// rule in spec.md §1 and §4.2.
func normalizeKeyword(key string) string {
	return strings.ToLower(key)
}

// splitTrimmed is a small helper used by the metadata resolver to split
// comma-separated keyword values (e.g. $BYTEORD, $PnE) while tolerating
// stray whitespace some writers insert.
func splitTrimmed(s string, sep byte) []string {
	parts := bytes.Split([]byte(s), []byte{sep})
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(string(p))
	}
	return out
}
