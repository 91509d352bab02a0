package helper

import (
	"regexp"
	"strings"

	om "github.com/cevaris/ordered_map"
)

var reTrue = regexp.MustCompile("(?i)^(true|yes|y|1)$")

// StringSliceToOrderedMap adds each value in s to an ordered map with key and value set to the value in s.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	retval := om.NewOrderedMap()
	for _, v := range s {
		retval.Set(v, v)
	}
	return retval
}

// OrderedMapKeysToStringSlice returns the keys of m in insertion order.
// All keys are expected to be of type string.
func OrderedMapKeysToStringSlice(m *om.OrderedMap) []string {
	retval := make([]string, 0, m.Len())
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Key.(string))
	}
	return retval
}

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1, f2, f3...' into a slice of string values.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it looks like a true value.
func GetTrueFalseStringAsBool(s string) bool {
	return reTrue.MatchString(strings.TrimSpace(s))
}

// SplitRight splits s on the last occurrence of c.
// If c is not found it returns s, "".
func SplitRight(s string, c string) (string, string) {
	i := strings.LastIndex(s, c)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(c):]
}

// NormaliseTableIdentifier returns the lowercase schema-qualified form of name.
// Bare table names are qualified with defaultSchema.
func NormaliseTableIdentifier(defaultSchema string, name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if !strings.Contains(name, ".") && defaultSchema != "" {
		name = strings.ToLower(strings.TrimSpace(defaultSchema)) + "." + name
	}
	return name
}
