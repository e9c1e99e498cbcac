// Package extractor pulls values out of JSON response bodies using
// JSONPath-like expressions ("$.id", "id").
package extractor

// Logger receives warnings for paths that did not match.
type Logger interface {
	Warn(format string, args ...interface{})
}

// String returns the value at path as a string. ok is false when the path
// does not exist or the value is empty.
func String(body []byte, path string, logger Logger) (string, bool) {
	value := findJSONPath(body, path, logger)
	return value, value != ""
}
