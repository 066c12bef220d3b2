// Copyright (c) 2026 Klokain. All rights reserved.

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klokain/osticket-api/internal/auth"
)

/*
TestIPAllowed verifies the API key IP restriction semantics: allow-all
markers, literal matches, CIDR membership, and fail-closed parsing.
*/
func TestIPAllowed(t *testing.T) {
	tests := []struct {
		name        string
		restriction string
		clientIP    string
		want        bool
	}{
		// Allow-all markers
		{"empty_restriction", "", "203.0.113.9", true},
		{"wildcard_restriction", "*", "203.0.113.9", true},
		{"zero_address_restriction", "0.0.0.0", "203.0.113.9", true},

		// Literal addresses
		{"literal_match", "192.168.1.5", "192.168.1.5", true},
		{"literal_mismatch", "192.168.1.5", "192.168.1.6", false},
		{"literal_ipv6_match", "2001:db8::1", "2001:db8::1", true},

		// CIDR ranges
		{"cidr_member", "10.0.0.0/24", "10.0.0.42", true},
		{"cidr_non_member", "10.0.0.0/24", "10.0.1.42", false},
		{"cidr_ipv6_member", "2001:db8::/32", "2001:db8:0:1::5", true},

		// Comma-separated lists
		{"list_second_entry_matches", "10.0.0.0/24,192.168.1.5", "192.168.1.5", true},
		{"list_no_entry_matches", "10.0.0.0/24,192.168.1.5", "172.16.0.1", false},
		{"list_with_spaces", "10.0.0.0/24, 192.168.1.5", "192.168.1.5", true},

		// Malformed entries are skipped, not treated as allow-all
		{"malformed_entry_skipped", "not-an-ip,192.168.1.5", "192.168.1.5", true},
		{"only_malformed_entries", "not-an-ip,also-bad", "192.168.1.5", false},

		// An unparseable client address never passes a real restriction
		{"bad_client_ip", "192.168.1.5", "garbage", false},
		{"empty_client_ip", "192.168.1.5", "", false},

		// IPv4-mapped IPv6 client addresses compare as IPv4
		{"mapped_client_matches_literal", "192.168.1.5", "::ffff:192.168.1.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.IPAllowed(tt.restriction, tt.clientIP))
		})
	}
}
