package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	leadingInt = regexp.MustCompile(`^\s*[+-]?\d+`)
	maxInt     = decimal.NewFromInt(math.MaxInt)
	minInt     = decimal.NewFromInt(math.MinInt)
)

// quantity accepts a JSON number or string. Numbers are truncated, strings
// are read up to the first non-digit, and a string with no leading digits or
// null is 0. Values outside int saturate.
type quantity int

func (q *quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	raw := string(b)
	switch {
	case raw == "null":
		*q = 0
		return nil
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimPrefix(strings.TrimSpace(leadingInt.FindString(s)), "+")
		if raw == "" {
			*q = 0
			return nil
		}
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	d = d.Truncate(0)
	switch {
	case d.GreaterThan(maxInt):
		*q = math.MaxInt
	case d.LessThan(minInt):
		*q = math.MinInt
	default:
		*q = quantity(d.IntPart())
	}
	return nil
}
