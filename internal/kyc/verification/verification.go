// Package verification reduces a raw ledger record to a single verified flag.
// It is the only place that interprets the ledger's attestation fields.
package verification

import (
	"encoding/hex"
	"encoding/json"
	"maps"
	"math"
	"math/big"
	"reflect"
	"slices"
	"strings"
)

// flagKeys are checked in order; the first present, non-null one decides.
// Matching is case-insensitive.
var flagKeys = []string{"verified", "isVerified", "verificationStatus", "status"}

// hashKey names the evidence digest consulted when no flag is present.
const hashKey = "documentHash"

var truthyTokens = map[string]struct{}{
	"true":     {},
	"1":        {},
	"yes":      {},
	"verified": {},
}

// Derive returns the verified status of a ledger record:
//  1. an explicit flag wins: bools pass through, numbers are true only when
//     equal to 1, strings are true for true/1/yes/verified (any case);
//  2. otherwise a non-zero documentHash counts as verified;
//  3. otherwise false.
//
// Malformed or missing input yields false; Derive never panics.
func Derive(fields map[string]any) (verified bool) {
	defer func() {
		if recover() != nil {
			verified = false
		}
	}()

	for _, key := range flagKeys {
		if v, ok := lookup(fields, key); ok && !isNull(v) {
			return coerce(v)
		}
	}
	if v, ok := lookup(fields, hashKey); ok && !isNull(v) {
		return hasEvidence(v)
	}
	return false
}

func lookup(fields map[string]any, key string) (any, bool) {
	if v, ok := fields[key]; ok {
		return v, true
	}
	// sorted so that records with several case variants resolve the same way
	// every time
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if strings.EqualFold(k, key) {
			return fields[k], true
		}
	}
	return nil, false
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func coerce(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(t))]
		return ok
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 1
	case *big.Int:
		return t.IsInt64() && t.Int64() == 1
	case float64:
		return t == 1
	case float32:
		return t == 1
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 1
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 1
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return !math.IsNaN(f) && f == 1
	case reflect.Pointer:
		return coerce(rv.Elem().Interface())
	}
	return false
}

// hasEvidence reports whether v is a non-zero 32-byte digest, either as raw
// bytes or as its 0x-prefixed hex form.
func hasEvidence(v any) bool {
	switch t := v.(type) {
	case [32]byte:
		return t != [32]byte{}
	case []byte:
		return len(t) == 32 && !allZero(t)
	case string:
		body, ok := strings.CutPrefix(strings.TrimSpace(t), "0x")
		if !ok {
			body, ok = strings.CutPrefix(strings.TrimSpace(t), "0X")
		}
		if !ok || len(body) != 64 {
			return false
		}
		b, err := hex.DecodeString(body)
		return err == nil && !allZero(b)
	case interface{ Bytes() []byte }:
		return hasEvidence(t.Bytes())
	}

	// named [32]byte types such as common.Hash or domain.DocumentHash
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Len() == 32 && rv.Type().Elem().Kind() == reflect.Uint8 {
		for i := range rv.Len() {
			if rv.Index(i).Uint() != 0 {
				return true
			}
		}
	}
	return false
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
