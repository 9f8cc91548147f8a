package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/engine"
	"github.com/wippyai/genfun/types"
)

// splitCall splits a call line into words. Double-quoted strings and
// brace groups are kept together.
func splitCall(line string) ([]string, error) {
	var (
		words []string
		cur   strings.Builder
		quote bool
		esc   bool
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case esc:
			esc = false
		case quote && r == '\\':
			esc = true
		case r == '"':
			quote = !quote
		case quote:
		case r == '{':
			depth++
		case r == '}':
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced '}' in %q", line)
			}
			depth--
		case unicode.IsSpace(r) && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	if quote {
		return nil, fmt.Errorf("unterminated string in %q", line)
	}
	if depth > 0 {
		return nil, fmt.Errorf("unbalanced '{' in %q", line)
	}
	flush()
	return words, nil
}

// parseLiteral parses one argument:
//
//	42  -7  0x1f      int
//	2.5  1e3          float64
//	"text"            string
//	true false        bool
//	nil undefined     nil and genfun.Undefined
//	Dog{rex}  Dog{}   a value tagged with the nominal type Dog
//	21:s32  1:u8      a number converted to a WIT primitive type
func parseLiteral(reg *types.Registry, s string) (any, error) {
	switch s {
	case "":
		return nil, fmt.Errorf("empty literal")
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "nil":
		return nil, nil
	case "undefined":
		return genfun.Undefined, nil
	}

	if s[0] == '"' {
		v, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("invalid string %s: %w", s, err)
		}
		return v, nil
	}

	if i := strings.IndexByte(s, '{'); i > 0 && strings.HasSuffix(s, "}") {
		name, body := s[:i], s[i+1:len(s)-1]
		h, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown type %q", name)
		}
		if body == "" {
			return types.Tag(h, nil), nil
		}
		return types.Tag(h, body), nil
	}

	if i := strings.LastIndexByte(s, ':'); i > 0 {
		typ, err := engine.ParseType(s[i+1:])
		if err != nil {
			return nil, err
		}
		v, err := parseNumber(s[:i])
		if err != nil {
			return nil, err
		}
		return engine.Convert(typ, v)
	}

	return parseNumber(s)
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 0, 0); err == nil {
		return int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("cannot parse %q (strings must be quoted)", s)
}

// resolveType maps a selector word to a handle.
func resolveType(reg *types.Registry, word string) (genfun.Handle, error) {
	switch word {
	case "_", "*":
		return genfun.Wildcard, nil
	case "nil":
		return genfun.NullType, nil
	case "undefined":
		return genfun.MissingType, nil
	}

	if strings.HasPrefix(word, "=") {
		v, err := parseLiteral(reg, word[1:])
		if err != nil {
			return 0, err
		}
		return reg.Instance(v)
	}

	if h, ok := reg.Lookup(word); ok {
		return h, nil
	}
	if v, ok := goZero[word]; ok {
		return reg.TypeOf(v), nil
	}
	return 0, fmt.Errorf("unknown type %q", word)
}

var goZero = map[string]any{
	"bool":       false,
	"string":     "",
	"int":        int(0),
	"int8":       int8(0),
	"int16":      int16(0),
	"int32":      int32(0),
	"int64":      int64(0),
	"uint":       uint(0),
	"uint8":      uint8(0),
	"uint16":     uint16(0),
	"uint32":     uint32(0),
	"uint64":     uint64(0),
	"float32":    float32(0),
	"float64":    float64(0),
	"complex64":  complex64(0),
	"complex128": complex128(0),
}
