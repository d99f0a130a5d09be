// Package validate holds the small grammars shared by several operations:
// instance names and snapshot names both follow the hostname grammar named
// throughout §4.4/§4.5/§8.
package validate

import "strings"

const maxHostnameLength = 63

// Hostname reports whether name satisfies the hostname grammar: 1-63
// characters, letters/digits/hyphens, not starting or ending with a hyphen.
func Hostname(name string) bool {
	if name == "" || len(name) > maxHostnameLength {
		return false
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
