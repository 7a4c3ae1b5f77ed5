package utils

import "strings"

// CanonicalDNSName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot because it doesn't add any runtime benefit, only legacy baggage.
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	// remove all trailing dots
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// JoinLabel returns label.apex in canonical form. An empty label or "@" yields the apex.
func JoinLabel(label, apex string) string {
	label = CanonicalDNSName(label)
	apex = CanonicalDNSName(apex)
	if label == "" || label == "@" {
		return apex
	}
	return label + "." + apex
}

// IsSubdomain reports whether name equals apex or ends with "."+apex.
// Matching is on label boundaries: "badexample.com" is not under "example.com".
func IsSubdomain(name, apex string) bool {
	name = CanonicalDNSName(name)
	apex = CanonicalDNSName(apex)
	if apex == "" || name == "" {
		return false
	}
	return name == apex || strings.HasSuffix(name, "."+apex)
}
