// Package jsonpath resolves a small JSONPath subset ($.a.b[0]) against JSON
// documents using gjson.
package jsonpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when the document is empty or not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON document")
	// ErrPathNotFound is returned when nothing exists at the path.
	ErrPathNotFound = errors.New("path not found")
	// ErrNotArray is returned by Count when the value at the path is not an array.
	ErrNotArray = errors.New("value is not an array")
)

// Lookup returns the value at path. The document is validated first.
func Lookup(data []byte, path string) (gjson.Result, error) {
	if path == "" {
		return gjson.Result{}, fmt.Errorf("empty JSONPath expression")
	}
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return gjson.Result{}, ErrInvalidJSON
	}

	result := gjson.GetBytes(data, convertToGjsonPath(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return result, nil
}

// Extract returns the value at path as a string. JSON null is returned as "null".
func Extract(json string, path string) (string, error) {
	result, err := Lookup([]byte(json), path)
	if err != nil {
		return "", err
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// Count returns the number of elements of the array at path.
func Count(data []byte, path string) (int, error) {
	result, err := Lookup(data, path)
	if err != nil {
		return 0, err
	}
	if !result.IsArray() {
		return 0, fmt.Errorf("%w: %s", ErrNotArray, path)
	}
	return len(result.Array()), nil
}

// convertToGjsonPath converts a JSONPath expression to gjson syntax:
//
//	$                -> @this
//	$.users[0].name  -> users.0.name
//	$['name']        -> name
func convertToGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	replacer := strings.NewReplacer(
		"['", ".", "']", "",
		`["`, ".", `"]`, "",
		"[", ".", "]", "",
	)
	path = replacer.Replace(path)
	return strings.TrimPrefix(path, ".")
}
