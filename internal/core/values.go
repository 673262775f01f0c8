package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// convertValue turns a textual filter value into the column's Go type. A
// value that does not parse is passed through as text so the store reports
// the mismatch itself.
func convertValue(t schema.ColumnType, s string) any {
	switch t {
	case schema.TypeInteger:
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	case schema.TypeReal:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	case schema.TypeBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return s
}

// coerceValue normalises a decoded row value for column c. Only lossless
// conversions are applied; anything else is returned unchanged.
func coerceValue(c schema.Column, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		switch c.Type {
		case schema.TypeInteger:
			if n, err := x.Int64(); err == nil {
				return n
			}
		case schema.TypeReal:
			if f, err := x.Float64(); err == nil {
				return f
			}
		}
		return x.String()
	case float64:
		if c.Type == schema.TypeInteger && x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
	case string:
		switch c.Type {
		case schema.TypeBlob:
			return []byte(x)
		case schema.TypeText:
			return x
		}
		return convertValue(c.Type, x)
	}
	return v
}
