// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"net/netip"
	"strings"
)

// # API Key IP Restriction

// allowAllMarkers are ipaddr values that disable IP restriction for a key.
// "0.0.0.0" is a legacy convention carried over from older osTicket installs.
var allowAllMarkers = map[string]bool{
	"":        true,
	"*":       true,
	"0.0.0.0": true,
}

// IPAllowed reports whether clientIP passes an API key's ipaddr restriction.
//
// The restriction is a comma-separated list mixing literal addresses and CIDR
// ranges ("10.0.0.0/24,192.168.1.5"). An empty or wildcard restriction allows
// every address. Malformed list entries are skipped rather than failing the
// whole list, but a list whose entries are all malformed allows nothing, and
// an unparseable client address is always rejected.
func IPAllowed(restriction, clientIP string) bool {
	restriction = strings.TrimSpace(restriction)
	if allowAllMarkers[restriction] {
		return true
	}

	clientAddr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}
	clientAddr = clientAddr.Unmap()

	for _, entry := range strings.Split(restriction, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		// CIDR range entry
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			if prefix.Masked().Contains(clientAddr) {
				return true
			}
			continue
		}

		// Literal address entry
		allowedAddr, err := netip.ParseAddr(entry)
		if err != nil {
			continue
		}
		if allowedAddr.Unmap() == clientAddr {
			return true
		}
	}

	return false
}
