package extractor

import (
	"github.com/tidwall/gjson"
)

// normalizePath strips a leading "$." and maps bare "$" to the whole document.
func normalizePath(path string) string {
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			return path[2:]
		} else if len(path) == 1 {
			return "@this"
		}
	}
	return path
}

// findJSONPath extracts a value from JSON using gjson with support for $.field and field syntax.
func findJSONPath(body []byte, path string, logger Logger) string {
	if !gjson.ValidBytes(body) {
		if logger != nil {
			logger.Warn("response is not valid JSON")
		}
		return ""
	}

	result := gjson.GetBytes(body, normalizePath(path))
	if !result.Exists() {
		if logger != nil {
			logger.Warn("JSONPath not found: %s", path)
		}
		return ""
	}

	return result.String()
}
