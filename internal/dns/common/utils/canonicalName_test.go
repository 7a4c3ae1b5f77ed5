package utils

import (
	"testing"
)

func TestCanonicalDNSName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple domain without trailing dot", "example.com", "example.com"},
		{"simple domain with trailing dot", "example.com.", "example.com"},
		{"uppercase domain", "EXAMPLE.COM", "example.com"},
		{"mixed case domain", "ExAmPlE.CoM", "example.com"},
		{"leading and trailing whitespace", "  example.com  ", "example.com"},
		{"tabs and spaces", "\t example.com \t", "example.com"},
		{"multiple trailing dots", "example.com..", "example.com"},
		{"root", ".", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalDNSName(tt.input); got != tt.expected {
				t.Errorf("CanonicalDNSName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJoinLabel(t *testing.T) {
	tests := []struct {
		label, apex, expected string
	}{
		{"ns1", "example.com", "ns1.example.com"},
		{"NS1", "Example.COM.", "ns1.example.com"},
		{"@", "example.com", "example.com"},
		{"", "example.com.", "example.com"},
		{"mail.", "example.com", "mail.example.com"},
	}

	for _, tt := range tests {
		if got := JoinLabel(tt.label, tt.apex); got != tt.expected {
			t.Errorf("JoinLabel(%q, %q) = %q, want %q", tt.label, tt.apex, got, tt.expected)
		}
	}
}

func TestIsSubdomain(t *testing.T) {
	tests := []struct {
		name     string
		qname    string
		apex     string
		expected bool
	}{
		{"apex itself", "example.com.", "example.com", true},
		{"apex mixed case", "EXAMPLE.com", "example.com.", true},
		{"direct child", "www.example.com.", "example.com", true},
		{"deep child", "a.b.c.example.com", "example.com", true},
		{"raw suffix without dot boundary", "badexample.com", "example.com", false},
		{"parent of apex", "com.", "example.com", false},
		{"unrelated", "example.org", "example.com", false},
		{"apex as prefix", "example.com.evil.net", "example.com", false},
		{"root query", ".", "example.com", false},
		{"empty apex", "example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubdomain(tt.qname, tt.apex); got != tt.expected {
				t.Errorf("IsSubdomain(%q, %q) = %v, want %v", tt.qname, tt.apex, got, tt.expected)
			}
		})
	}
}
