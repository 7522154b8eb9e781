// Package primitive provides the stateless value checks used by
// pre-validation. Each check receives the raw field value (untyped, as parsed
// from JSON) together with its field-location string, and returns an error
// whose message embeds the location, e.g. "lotNumber must be a string".
//
// Checks never report absence; callers only invoke them on values that are
// present in the record.
package primitive

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StringOpts constrains the String check beyond non-emptiness.
type StringOpts struct {
	// DefinedLength requires an exact length when > 0. It replaces the
	// non-empty check.
	DefinedLength int
	// MaxLength caps the length when > 0.
	MaxLength int
	// Predefined restricts the value to a fixed set when non-empty.
	Predefined []string
	// DisallowSpaces rejects values containing a space.
	DisallowSpaces bool
	// PostalCode requires the two-part UK postcode shape.
	PostalCode bool
}

// String checks that value is a string meeting the given constraints.
func String(value any, location string, opts StringOpts) error {
	s, ok := value.(string)
	if !ok {
		return errors.New(location + " must be a string")
	}

	if opts.DefinedLength > 0 {
		if len(s) != opts.DefinedLength {
			return fmt.Errorf("%s must be %d characters", location, opts.DefinedLength)
		}
	} else if len(s) == 0 {
		return errors.New(location + " must be a non-empty string")
	}

	if opts.MaxLength > 0 && len(s) > opts.MaxLength {
		return fmt.Errorf("%s must be %d or fewer characters", location, opts.MaxLength)
	}

	if len(opts.Predefined) > 0 {
		found := false
		for _, p := range opts.Predefined {
			if s == p {
				found = true
				break
			}
		}
		if !found {
			return errors.New(location + " must be one of the following: " + strings.Join(opts.Predefined, ", "))
		}
	}

	if opts.DisallowSpaces && strings.Contains(s, " ") {
		return errors.New(location + " must not contain spaces")
	}

	if opts.PostalCode {
		if len(strings.Split(s, " ")) != 2 {
			return errors.New(location + " must be divided into two parts by a single space")
		}
		if len(strings.ReplaceAll(s, " ", "")) > 8 {
			return errors.New(location + " must be 8 or fewer characters (excluding spaces)")
		}
	}

	return nil
}

// ListOpts constrains the List check beyond non-emptiness.
type ListOpts struct {
	// DefinedLength requires an exact length when > 0. It replaces the
	// non-empty check.
	DefinedLength int
	// StringElements requires every element to be a non-empty string.
	StringElements bool
	// ObjectElements requires every element to be a non-empty object.
	ObjectElements bool
}

// List checks that value is an array meeting the given constraints.
func List(value any, location string, opts ListOpts) error {
	s, ok := value.([]any)
	if !ok {
		return errors.New(location + " must be an array")
	}

	if opts.DefinedLength > 0 {
		if len(s) != opts.DefinedLength {
			return fmt.Errorf("%s must be an array of length %d", location, opts.DefinedLength)
		}
	} else if len(s) == 0 {
		return errors.New(location + " must be a non-empty array")
	}

	if opts.StringElements {
		for _, elem := range s {
			str, ok := elem.(string)
			if !ok {
				return errors.New(location + " must be an array of strings")
			}
			if len(str) == 0 {
				return errors.New(location + " must be an array of non-empty strings")
			}
		}
	}

	if opts.ObjectElements {
		for _, elem := range s {
			obj, ok := elem.(map[string]any)
			if !ok {
				return errors.New(location + " must be an array of objects")
			}
			if len(obj) == 0 {
				return errors.New(location + " must be an array of non-empty objects")
			}
		}
	}

	return nil
}

// Date checks that value is a string holding a full date in the format
// YYYY-MM-DD.
func Date(value any, location string) error {
	s, ok := value.(string)
	if !ok {
		return errors.New(location + " must be a string")
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return errors.New(location + ` must be a valid date string in the format "YYYY-MM-DD"`)
	}
	return nil
}

// offsetPattern matches the ±hh:mm timezone suffix FHIR requires when a time
// element is present.
var offsetPattern = regexp.MustCompile(`^(\+|-)\d{2}:\d{2}$`)

// DateTime checks that value is a string holding either a full date or a full
// date-time with a ±hh:mm offset. Partial dates are not accepted.
func DateTime(value any, location string) error {
	s, ok := value.(string)
	if !ok {
		return errors.New(location + " must be a string")
	}

	errMsg := location + " must be a valid datetime in the format 'YYYY-MM-DDThh:mm:ss+zz:zz' (where time element " +
		"is optional, timezone must be given if and only if time is given, and milliseconds can be optionally " +
		"included after the seconds). Note that partial dates are not allowed for " +
		location + " for this service."

	// Full date only
	if !strings.Contains(s, "T") {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return errors.New(errMsg)
		}
		return nil
	}

	// Offset must meet the FHIR shape before the more permissive time parse
	if len(s) < 6 || !offsetPattern.MatchString(s[len(s)-6:]) {
		return errors.New(errMsg)
	}

	if !strings.Contains(s, ".") {
		if _, err := time.Parse("2006-01-02T15:04:05-07:00", s); err != nil {
			return errors.New(errMsg)
		}
		return nil
	}

	if _, err := time.Parse("2006-01-02T15:04:05.999999999-07:00", s); err != nil {
		return errors.New(errMsg)
	}
	return nil
}

// Boolean checks that value is a boolean.
func Boolean(value any, location string) error {
	if _, ok := value.(bool); !ok {
		return errors.New(location + " must be a boolean")
	}
	return nil
}

// PositiveInt checks that value is a positive integer, optionally capped at
// maxValue (0 means no cap). Values parsed from JSON floats never qualify,
// matching the strictness of the upstream parse.
func PositiveInt(value any, location string, maxValue int) error {
	n, ok := asInt(value)
	if !ok {
		return errors.New(location + " must be a positive integer")
	}
	if n <= 0 {
		return errors.New(location + " must be a positive integer")
	}
	if maxValue > 0 && n > int64(maxValue) {
		return fmt.Errorf("%s must be an integer in the range 1 to %d", location, maxValue)
	}
	return nil
}

func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// Number checks that value is an integer or an arbitrary-precision decimal,
// with at most maxDecimalPlaces decimal places (0 means no limit). Decimals
// must have been parsed precision-preserving upstream; binary floats are
// rejected outright.
func Number(value any, location string, maxDecimalPlaces int) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case int, int64:
		return nil
	case decimal.Decimal:
		d = v
	default:
		return errors.New(location + " must be a number")
	}

	if maxDecimalPlaces > 0 && int(-d.Exponent()) > maxDecimalPlaces {
		return fmt.Errorf("%s must be a number with a maximum of %d decimal places", location, maxDecimalPlaces)
	}
	return nil
}

// FieldToReplace is the placeholder substituted with the duplicated value in
// uniqueness diagnostics.
const FieldToReplace = "FIELD_TO_REPLACE"

// UniqueList checks that the named attribute is unique across a list of
// objects. The location template contains FieldToReplace where the duplicated
// value should appear in the diagnostic. Values are compared by their
// rendered text, so a record carrying an object or list in the attribute
// position is still checked rather than rejected.
func UniqueList(items []any, attribute, locationTemplate string) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v", obj[attribute])
		if seen[key] {
			return errors.New(strings.Replace(locationTemplate, FieldToReplace, key, 1) + " must be unique")
		}
		seen[key] = true
	}
	return nil
}

// NHSNumber checks the 10-digit modulus-11 NHS number.
//
// The first nine digits are weighted 10 down to 2, summed, and the remainder
// of division by 11 subtracted from 11 gives the check digit; a result of 11
// maps to 0 and a result of 10 makes the number invalid.
func NHSNumber(value, location string) error {
	if !validNHSNumber(value) {
		return errors.New(location + " is not a valid NHS number")
	}
	return nil
}

func validNHSNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	total := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		total += int(c-'0') * (10 - i)
	}
	last := s[9]
	if last < '0' || last > '9' {
		return false
	}

	check := 11 - total%11
	if check == 11 {
		check = 0
	}
	if check == 10 {
		return false
	}
	return check == int(last-'0')
}
