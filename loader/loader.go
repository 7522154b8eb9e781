// Package loader parses FHIR Immunization JSON into the untyped record shape
// the validation stages consume. The standard library decoder turns every
// number into a float64, which destroys the decimal-place information the
// doseQuantity checks depend on, so numbers are parsed from their raw text:
// integers become int64 and anything with a fraction or exponent becomes a
// decimal.Decimal.
package loader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
)

func init() {
	// Records carry decimal.Decimal values after parsing or decoration; they
	// must render as JSON numbers, not quoted strings, when a record is
	// re-encoded for the model conformance stage.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseRecord parses a JSON object into a record. The top-level value must be
// an object.
func ParseRecord(data []byte) (map[string]any, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}
	if dataType != jsonparser.Object {
		return nil, errors.New("record must be a JSON object")
	}
	parsed, err := parseObject(value)
	if err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}
	return parsed, nil
}

func parseObject(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		parsed, err := parseValue(value, dataType)
		if err != nil {
			return err
		}
		out[string(key)] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseArray(data []byte) ([]any, error) {
	out := []any{}
	var innerErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if innerErr != nil {
			return
		}
		parsed, err := parseValue(value, dataType)
		if err != nil {
			innerErr = err
			return
		}
		out = append(out, parsed)
	})
	if err != nil {
		return nil, err
	}
	if innerErr != nil {
		return nil, innerErr
	}
	return out, nil
}

func parseValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Object:
		return parseObject(value)
	case jsonparser.Array:
		return parseArray(value)
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return parseNumber(string(value))
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %q", value)
	}
}

// parseNumber keeps the numeric representation the validation stages expect:
// plain integers as int64, everything else as decimal.Decimal. An integer too
// large for int64 falls back to decimal.
func parseNumber(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}
