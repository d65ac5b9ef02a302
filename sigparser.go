package memscan

import (
	"fmt"
	"strconv"
	"strings"
)

// parseOp parses a single op string per the grammar:
//
//	op      := "asm(" match+ ")"  |  "ptr(" sint ")"
//	match   := hexbyte | "**" | "^^"
//	hexbyte := two hexadecimal digits (case-insensitive for a-f)
//	sint    := optional sign ("+"/"-") followed by one or more decimal digits
//
// No leading or trailing whitespace is allowed anywhere in the string.
func parseOp(s string) (op, error) {
	switch {
	case strings.HasPrefix(s, "asm(") && strings.HasSuffix(s, ")"):
		return parseAsm(s[len("asm(") : len(s)-1])
	case strings.HasPrefix(s, "ptr(") && strings.HasSuffix(s, ")"):
		return parsePtr(s[len("ptr(") : len(s)-1])
	default:
		return op{}, fmt.Errorf("unrecognized op (want asm(...) or ptr(...))")
	}
}

func parseAsm(body string) (op, error) {
	pattern, err := parsePattern(body)
	if err != nil {
		return op{}, err
	}
	if len(pattern) == 0 {
		return op{}, fmt.Errorf("asm() pattern must have at least one match token")
	}
	return op{kind: opAsm, pattern: pattern}, nil
}

func parsePattern(body string) ([]match, error) {
	var pattern []match
	for len(body) > 0 {
		switch {
		case strings.HasPrefix(body, "**"):
			pattern = append(pattern, match{kind: matchAny})
			body = body[2:]
		case strings.HasPrefix(body, "^^"):
			pattern = append(pattern, match{kind: matchPosition})
			body = body[2:]
		default:
			if len(body) < 2 {
				return nil, fmt.Errorf("dangling token %q in pattern", body)
			}
			v, err := strconv.ParseUint(body[:2], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid hex byte %q: %w", body[:2], err)
			}
			pattern = append(pattern, match{kind: matchLiteral, lit: byte(v)})
			body = body[2:]
		}
	}
	return pattern, nil
}

func parsePtr(body string) (op, error) {
	if body == "" {
		return op{}, fmt.Errorf("ptr() requires an integer offset")
	}
	// strconv.ParseInt accepts an optional leading "+" or "-" followed by
	// decimal digits, matching the grammar's sint exactly.
	v, err := strconv.ParseInt(body, 10, 32)
	if err != nil {
		return op{}, fmt.Errorf("invalid ptr offset %q: %w", body, err)
	}
	return op{kind: opPtr, offset: int32(v)}, nil
}
