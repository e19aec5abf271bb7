package oid

import "testing"

func TestNewValidatesLengthAndCase(t *testing.T) {
	if _, err := New(SHA256, "deadbeef"); err == nil {
		t.Fatal("expected error for short sha256 digest")
	}
	hex64 := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	o, err := New(SHA256, hex64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Hex != hex64 {
		t.Fatalf("hex not preserved: %q", o.Hex)
	}
}

func TestNewLowercasesHex(t *testing.T) {
	hex64 := "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF"
	o, err := New(SHA256, hex64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Hex != "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef" {
		t.Fatalf("hex not lowercased: %q", o.Hex)
	}
}

func TestNewRejectsUnknownAlgo(t *testing.T) {
	if _, err := New(Algo("md5"), "deadbeef"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestStringAndParseRoundTrip(t *testing.T) {
	hex16 := "0123456789abcdef"
	o, err := New(XXH3, hex16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := o.String()
	if s != "xxh3:0123456789abcdef" {
		t.Fatalf("unexpected string form: %q", s)
	}
	parsed, err := Parse(s)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !parsed.Equal(o) {
		t.Fatalf("round trip mismatch: %+v != %+v", parsed, o)
	}
}

func TestParseRejectsMissingColon(t *testing.T) {
	if _, err := Parse("blake3deadbeef"); err == nil {
		t.Fatal("expected error for missing colon separator")
	}
}

func TestStoragePathShardsByFirstTwoHexChars(t *testing.T) {
	hex64 := "ab23456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	o, err := New(Blake3, hex64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "blake3/ab/23456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if got := o.StoragePath(); got != want {
		t.Fatalf("StoragePath() = %q, want %q", got, want)
	}
}
