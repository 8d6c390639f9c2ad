package utils

import "strings"

// Allows you to specify *.example.com or *@example.com to do a suffix match.
// Effectively, if the first character is a *, it just checks to see if its a suffix
// If it's a string literal, it does a case-insensitive literal match
func MatchesWithWildcard(valueToEvaluate string, matcher string) bool {
	if matcher == "" {
		return false
	}
	valueToEvaluate = strings.ToLower(valueToEvaluate)
	matcher = strings.ToLower(matcher)

	if matcher[0] == '*' {
		return strings.HasSuffix(valueToEvaluate, matcher[1:])
	}
	return valueToEvaluate == matcher
}

func TestStringAgainstSliceMatchers(matchers []string, value string) bool {
	for _, m := range matchers {
		if MatchesWithWildcard(value, m) {
			return true
		}
	}

	return false
}

func Contains(s []string, val string) bool {
	for _, v := range s {
		if v == val {
			return true
		}
	}

	return false
}
