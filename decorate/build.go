package decorate

import "github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"

// isNotEmpty reports whether a value carries data. Falsey-but-meaningful
// values such as false and 0 are data; nil, empty strings, empty containers
// and a single-element list holding an empty string are not.
func isNotEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []any:
		if len(v) == 0 {
			return false
		}
		if len(v) == 1 {
			if s, ok := v[0].(string); ok && s == "" {
				return false
			}
		}
		return true
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// anyNotEmpty reports whether at least one value carries data.
func anyNotEmpty(values ...any) bool {
	for _, v := range values {
		if isNotEmpty(v) {
			return true
		}
	}
	return false
}

// compact copies a map dropping every empty value.
func compact(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if isNotEmpty(v) {
			out[k] = v
		}
	}
	return out
}

// addItem sets target[key] = value when the value is non-empty.
func addItem(target map[string]any, key string, value any) {
	if isNotEmpty(value) {
		target[key] = value
	}
}

// addConverted sets target[key] to the converted value when the raw value is
// non-empty.
func addConverted(target map[string]any, key, raw string, convert func(string) any) {
	if isNotEmpty(raw) {
		target[key] = convert(raw)
	}
}

// addMap sets target[key] to the compacted values map when at least one
// value is non-empty.
func addMap(target map[string]any, key string, values map[string]any) {
	if anyMapValueNotEmpty(values) {
		target[key] = compact(values)
	}
}

// addListOfMap sets target[key] to a single-element list holding the
// compacted values map when at least one value is non-empty.
func addListOfMap(target map[string]any, key string, values map[string]any) {
	if anyMapValueNotEmpty(values) {
		target[key] = []any{compact(values)}
	}
}

// addCustom sets target[key] = value when at least one of the gating values
// is non-empty. The value itself can take any shape.
func addCustom(target map[string]any, key string, gate []any, value any) {
	if anyNotEmpty(gate...) {
		target[key] = value
	}
}

// addSNOMED sets target[key] to a codeable concept with one SNOMED coding
// when the code or display is non-empty.
func addSNOMED(target map[string]any, key, code, display string) {
	if !anyNotEmpty(code, display) {
		return
	}
	target[key] = map[string]any{
		"coding": []any{compact(map[string]any{
			"system":  fieldpath.SystemSNOMED,
			"code":    code,
			"display": display,
		})},
	}
}

func anyMapValueNotEmpty(values map[string]any) bool {
	for _, v := range values {
		if isNotEmpty(v) {
			return true
		}
	}
	return false
}

// extensionItem builds an extension carrying a single-coding codeable
// concept, with empty coding parts removed.
func extensionItem(url, system, code, display string) map[string]any {
	item := map[string]any{
		"url":                  url,
		"valueCodeableConcept": map[string]any{},
	}
	addListOfMap(item["valueCodeableConcept"].(map[string]any), "coding", map[string]any{
		"system":  system,
		"code":    code,
		"display": display,
	})
	return item
}

// questionnaireItem builds a QuestionnaireResponse item with one answer.
func questionnaireItem(linkID string, answer map[string]any) map[string]any {
	return map[string]any{
		"linkId": linkID,
		"answer": []any{answer},
	}
}
