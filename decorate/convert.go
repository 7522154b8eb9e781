package decorate

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Conversion helpers for flat field values. Each returns the converted value
// where possible and the original value otherwise; decorators never reject a
// value themselves — a bad value flows through to validation, which owns the
// diagnostics.

// convertDate turns a compact YYYYMMDD date into YYYY-MM-DD.
func convertDate(value string) any {
	t, err := time.Parse("20060102", value)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}

// convertDateTime turns a compact YYYYMMDDThhmmss (optionally suffixed with
// "00") timestamp into ISO form with a UTC offset.
func convertDateTime(value string) any {
	compact := value
	if len(compact) == 17 && strings.HasSuffix(compact, "00") {
		compact = compact[:15]
	}
	t, err := time.Parse("20060102T150405", compact)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02T15:04:05") + "+00:00"
}

// convertGender maps a legacy gender code to the FHIR administrative gender.
func convertGender(code string) any {
	switch code {
	case "1":
		return "male"
	case "2":
		return "female"
	case "9":
		return "other"
	case "0":
		return "unknown"
	default:
		return code
	}
}

// convertBoolean maps a textual boolean, case-insensitively.
func convertBoolean(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	default:
		return value
	}
}

// convertInteger parses an integer string.
func convertInteger(value string) any {
	n, err := strconv.Atoi(value)
	if err != nil {
		return value
	}
	return n
}

// convertIntegerOrDecimal parses an integer where possible and otherwise an
// arbitrary-precision decimal, so "4.50" survives as exactly 4.50.
func convertIntegerOrDecimal(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return d
}
