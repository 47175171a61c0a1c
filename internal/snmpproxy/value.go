package snmpproxy

import (
	"encoding/json"
	"fmt"
)

// encodedValue is the JSON envelope stored in the cache for one SNMP
// variable: gosnmp returns int/uint/int64/uint64/string/[]byte depending
// on the ASN.1 tag, and the envelope preserves which one it was.
type encodedValue struct {
	Kind  string `json:"kind"`
	Int   int64  `json:"int,omitempty"`
	Uint  uint64 `json:"uint,omitempty"`
	Str   string `json:"str,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
}

func encodeValue(v any) ([]byte, error) {
	var ev encodedValue
	switch x := v.(type) {
	case int:
		ev = encodedValue{Kind: "int", Int: int64(x)}
	case int64:
		ev = encodedValue{Kind: "int", Int: x}
	case uint:
		ev = encodedValue{Kind: "uint", Uint: uint64(x)}
	case uint64:
		ev = encodedValue{Kind: "uint", Uint: x}
	case uint32:
		ev = encodedValue{Kind: "uint", Uint: uint64(x)}
	case string:
		ev = encodedValue{Kind: "str", Str: x}
	case []byte:
		ev = encodedValue{Kind: "bytes", Bytes: x}
	case nil:
		ev = encodedValue{Kind: "nil"}
	default:
		return nil, fmt.Errorf("snmpproxy: cannot cache value of type %T", v)
	}
	return json.Marshal(ev)
}

func decodeValue(b []byte) (any, error) {
	var ev encodedValue
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, err
	}
	switch ev.Kind {
	case "int":
		return ev.Int, nil
	case "uint":
		return ev.Uint, nil
	case "str":
		return ev.Str, nil
	case "bytes":
		return ev.Bytes, nil
	case "nil":
		return nil, nil
	default:
		return nil, fmt.Errorf("snmpproxy: unknown cached value kind %q", ev.Kind)
	}
}
