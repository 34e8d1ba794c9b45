// Package jsonutil holds helpers for loosely typed JSON input.
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, accepting numbers and
// booleans where a string was expected. Returns empty string for null/empty.
// Objects and arrays come back as their raw JSON text.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if i, err := numVal.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := numVal.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return strconv.FormatBool(boolVal)
	}

	return string(raw)
}

// IsBlank reports whether raw is absent, null, or a whitespace-only string.
// Empty objects and arrays are blank too.
func IsBlank(raw json.RawMessage) bool {
	v := strings.TrimSpace(FlexibleStringValue(raw))
	return v == "" || v == "{}" || v == "[]"
}
