package rrdata

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDomainName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{
			name:  "simple domain",
			input: "Foo.Example.com.",
			want:  []byte{3, 'f', 'o', 'o', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0},
		},
		{
			name:  "single label",
			input: "LOCALHOST.",
			want:  []byte{9, 'l', 'o', 'c', 'a', 'l', 'h', 'o', 's', 't', 0},
		},
		{
			name:  "empty string is root",
			input: " ",
			want:  []byte{0},
		},
		{
			name:    "label too long",
			input:   strings.Repeat("A", 64) + ".COM.",
			wantErr: true,
		},
		{
			name:    "name too long",
			input:   strings.Repeat(strings.Repeat("a", 60)+".", 5),
			wantErr: true,
		},
		{
			name:  "multiple consecutive dots",
			input: "foo..example.com.",
			want:  []byte{3, 'f', 'o', 'o', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeDomainName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIPFamilyHelpers(t *testing.T) {
	assert.True(t, isIPv4(net.ParseIP("192.168.1.1")))
	assert.False(t, isIPv4(net.ParseIP("2001:db8::1")))
	assert.False(t, isIPv4(nil))

	assert.True(t, isIPv6(net.ParseIP("2001:db8::1")))
	assert.True(t, isIPv6(net.ParseIP("::")))
	assert.False(t, isIPv6(net.ParseIP("10.0.0.1")))
	assert.False(t, isIPv6(nil))
}
