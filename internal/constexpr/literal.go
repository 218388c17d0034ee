package constexpr

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

var (
	decimalRe = regexp.MustCompile(`^[0-9][0-9_]*$`)
	basedRe   = regexp.MustCompile(`^([0-9]+)?([bhd])([0-9a-fA-FxXzZ_]+)$`)
)

// ParseLiteral reads a Lucid number or string literal.
func ParseLiteral(text string) (*Value, error) {
	if strings.HasPrefix(text, `"`) {
		s, err := strconv.Unquote(text)
		if err != nil {
			return nil, fmt.Errorf("bad string literal %s: %w", text, err)
		}
		if len(s) == 0 {
			return nil, fmt.Errorf("empty string literal")
		}
		if len(s) == 1 {
			return sized(big.NewInt(int64(s[0])), 8, false, false), nil
		}
		elems := make([]*Value, len(s))
		for i := 0; i < len(s); i++ {
			elems[i] = sized(big.NewInt(int64(s[i])), 8, false, false)
		}
		return &Value{Elems: elems, Width: width.Dims(len(s), 8)}, nil
	}

	if decimalRe.MatchString(text) {
		x, ok := new(big.Int).SetString(strings.ReplaceAll(text, "_", ""), 10)
		if !ok {
			return nil, fmt.Errorf("bad number %q", text)
		}
		return Number(x), nil
	}

	m := basedRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("bad number %q", text)
	}
	digits := strings.ReplaceAll(m[3], "_", "")
	base, per := 0, 0
	switch m[2] {
	case "b":
		base, per = 2, 1
	case "h":
		base, per = 16, 4
	case "d":
		base = 10
	}

	unknown := strings.ContainsAny(digits, "xXzZ")
	if unknown && base == 10 {
		return nil, fmt.Errorf("decimal literal %q cannot contain x or z", text)
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case 'x', 'X', 'z', 'Z':
			return '0'
		}
		return r
	}, digits)
	x, ok := new(big.Int).SetString(clean, base)
	if !ok {
		return nil, fmt.Errorf("bad number %q", text)
	}

	var w int
	switch {
	case m[1] != "":
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad literal width in %q", text)
		}
		w = n
		x.And(x, mask(w))
	case per > 0:
		w = per * len(digits)
	default:
		w = bitsFor(x)
	}
	return sized(x, w, false, unknown), nil
}
