package f5ltm

import (
	"strconv"
	"strings"
)

// tailInts splits the numeric OID suffix past base into its integer
// components.
func tailInts(oid, base string) ([]int, bool) {
	trimmedBase := strings.TrimPrefix(base, ".")
	if !strings.HasPrefix(oid, trimmedBase+".") {
		return nil, false
	}
	segs := strings.Split(strings.TrimPrefix(oid, trimmedBase+"."), ".")
	out := make([]int, 0, len(segs))
	for _, s := range segs {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// readString consumes one length-prefixed string-in-OID component
// starting at seq[pos], returning the string and the position just past it.
func readString(seq []int, pos int) (string, int, bool) {
	if pos >= len(seq) {
		return "", pos, false
	}
	n := seq[pos]
	if n < 0 || pos+1+n > len(seq) {
		return "", pos, false
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(seq[pos+1+i])
	}
	return string(b), pos + 1 + n, true
}

// parseObjectNameSuffix reads a string-in-OID object name, optionally
// followed by a trailing numeric sub-index (e.g. an HTTP-class list
// position). The index, if present, is returned with hasIndex=true.
func parseObjectNameSuffix(seq []int) (name string, index int, hasIndex bool) {
	s, pos, ok := readString(seq, 0)
	if !ok {
		return "", 0, false
	}
	if pos < len(seq) {
		return s, seq[pos], true
	}
	return s, 0, false
}

// parsePoolMemberSuffix reads a pool-member index: a string-in-OID pool
// name, an address-type component of 1 (IPv4), a 4-octet IPv4 address and
// a port. Any other address type fails the parse.
func parsePoolMemberSuffix(seq []int) (pool, ip string, port int, ok bool) {
	name, pos, ok := readString(seq, 0)
	if !ok {
		return "", "", 0, false
	}
	if len(seq) < pos+6 || seq[pos] != 1 {
		return "", "", 0, false
	}
	octets := seq[pos+1 : pos+5]
	for _, o := range octets {
		if o < 0 || o > 255 {
			return "", "", 0, false
		}
	}
	ipStr := strconv.Itoa(octets[0]) + "." + strconv.Itoa(octets[1]) + "." + strconv.Itoa(octets[2]) + "." + strconv.Itoa(octets[3])
	port = seq[pos+5]
	return name, ipStr, port, true
}
