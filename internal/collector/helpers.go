// Package collector holds the generic helpers shared by every vendor
// state machine: OID/string conversion, bitmap iteration, cache-or-fetch,
// and OID-name extension.
package collector

import (
	"fmt"
	"strconv"
	"strings"

	"qcss/internal/snmpproxy"
)

// OIDString encodes s as "len.b1.b2…bn" where bi = ord(s[i]).
func OIDString(s string) string {
	b := []byte(s)
	parts := make([]string, 0, len(b)+1)
	parts = append(parts, strconv.Itoa(len(b)))
	for _, c := range b {
		parts = append(parts, strconv.Itoa(int(c)))
	}
	return strings.Join(parts, ".")
}

// StringOID is the inverse of OIDString: it consumes one length prefix and
// returns the string it encodes. When the tail holds more than one
// length-prefixed string back to back, all of them are returned in order.
func StringOID(seq []int) ([]string, error) {
	var out []string
	i := 0
	for i < len(seq) {
		n := seq[i]
		i++
		if n < 0 || i+n > len(seq) {
			return nil, fmt.Errorf("stringOid: truncated string of length %d at offset %d", n, i)
		}
		b := make([]byte, n)
		for j := 0; j < n; j++ {
			b[j] = byte(seq[i+j])
		}
		out = append(out, string(b))
		i += n
	}
	return out, nil
}

// Bitmap yields the 1-based positions of set bits in b, MSB-first within
// each byte, reproducing the Alteon slbCurCfgGroupRealServers encoding: for
// byte index i (0-based) and bit r (0-based from the LSB), a set bit
// yields position 8 - r + i*8. This numbering must be preserved exactly —
// it is what slbCurCfgRealServer indices use as keys.
func Bitmap(b []byte) []int {
	var positions []int
	for i, byt := range b {
		for r := 0; r < 8; r++ {
			if byt&(1<<uint(r)) != 0 {
				positions = append(positions, 8-r+i*8)
			}
		}
	}
	return positions
}

// ExtendOids rewrites each symbolic OID name in names to its numeric base
// from table, preserving the order of names. A name with no entry in table
// is left unchanged (it is assumed already numeric).
func ExtendOids(table map[string]string, names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if base, ok := table[n]; ok {
			out[i] = base
			continue
		}
		out[i] = n
	}
	return out
}

// IsCached reports whether proxy.Cache would succeed for every key and
// none of the returned values is nil.
func IsCached(proxy *snmpproxy.Proxy, keys ...string) bool {
	values, err := proxy.Cache(keys...)
	if err != nil {
		return false
	}
	for _, v := range values {
		if v == nil {
			return false
		}
	}
	return true
}
