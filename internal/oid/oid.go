// Package oid implements the DVS object identifier: a (algorithm, hex
// digest) pair that names content across the external store, the local
// cache, and the remote HTTP CAS server without translation.
package oid

import (
	"fmt"
	"strings"
)

// Algo is a supported hash algorithm.
type Algo string

const (
	Blake3 Algo = "blake3"
	SHA256 Algo = "sha256"
	XXH3   Algo = "xxh3"
)

// HexLen returns the expected lowercase-hex digest length for algo, or 0 if
// algo is unknown.
func (a Algo) HexLen() int {
	switch a {
	case Blake3, SHA256:
		return 64
	case XXH3:
		return 16
	default:
		return 0
	}
}

// Valid reports whether a is one of the three recognized algorithms.
func (a Algo) Valid() bool {
	switch a {
	case Blake3, SHA256, XXH3:
		return true
	default:
		return false
	}
}

// Oid identifies an object by the digest of its bytes under Algo.
type Oid struct {
	Algo Algo
	Hex  string
}

// New validates hex against algo's expected length/charset and returns the
// corresponding Oid.
func New(algo Algo, hex string) (Oid, error) {
	o := Oid{Algo: algo, Hex: strings.ToLower(hex)}
	if err := o.Validate(); err != nil {
		return Oid{}, err
	}
	return o, nil
}

// Validate reports whether o has a recognized algorithm and a hex digest of
// the expected length, lowercase.
func (o Oid) Validate() error {
	if !o.Algo.Valid() {
		return fmt.Errorf("oid: unknown algorithm %q", o.Algo)
	}
	want := o.Algo.HexLen()
	if len(o.Hex) != want {
		return fmt.Errorf("oid: %s digest must be %d hex chars, got %d", o.Algo, want, len(o.Hex))
	}
	for _, r := range o.Hex {
		if !isLowerHex(r) {
			return fmt.Errorf("oid: digest %q is not lowercase hex", o.Hex)
		}
	}
	return nil
}

func isLowerHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

// String renders the textual form "algo:hex".
func (o Oid) String() string {
	return string(o.Algo) + ":" + o.Hex
}

// Parse parses the textual form "algo:hex" produced by String.
func Parse(s string) (Oid, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return Oid{}, fmt.Errorf("oid: invalid textual form %q, want \"algo:hex\"", s)
	}
	return New(Algo(s[:i]), s[i+1:])
}

// Equal reports value equality between two Oids.
func (o Oid) Equal(other Oid) bool {
	return o.Algo == other.Algo && o.Hex == other.Hex
}

// StoragePath returns the object's path relative to a store root:
// algo/hex[0:2]/hex[2:].
func (o Oid) StoragePath() string {
	return string(o.Algo) + "/" + o.Hex[:2] + "/" + o.Hex[2:]
}
