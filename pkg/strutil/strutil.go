package strutil

import "strings"

// IsBlank reports whether s is empty or contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsNotBlank is the negation of IsBlank.
func IsNotBlank(s string) bool {
	return !IsBlank(s)
}

// HasBlank reports whether any of the given strings is blank.
func HasBlank(strs ...string) bool {
	for _, s := range strs {
		if IsBlank(s) {
			return true
		}
	}
	return false
}

// AllBlank reports whether every given string is blank.
func AllBlank(strs ...string) bool {
	for _, s := range strs {
		if IsNotBlank(s) {
			return false
		}
	}
	return true
}

// IfBlank returns def when s is blank, s otherwise.
func IfBlank(s, def string) string {
	if IsBlank(s) {
		return def
	}
	return s
}
