package codec

import (
	"encoding/json"
	"testing"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	v := map[string]any{"b": 1, "a": 2, "c": 3}
	got, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"a":2,"b":1,"c":3}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeKeyOrderIndependentOfInputOrder(t *testing.T) {
	a := map[string]any{"z": 1, "y": []any{1, 2, 3}, "x": map[string]any{"n": 1, "m": 2}}
	b := map[string]any{"x": map[string]any{"m": 2, "n": 1}, "y": []any{1, 2, 3}, "z": 1}

	ga, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize a: %v", err)
	}
	gb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize b: %v", err)
	}
	if string(ga) != string(gb) {
		t.Fatalf("canonical form must not depend on map literal order: %s != %s", ga, gb)
	}
}

func TestHashStableAcrossEquivalentInputs(t *testing.T) {
	h1, err := Hash(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash must be order-independent: %s != %s", h1, h2)
	}
	h3, err := Hash(map[string]any{"a": 1, "b": 3})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h3 {
		t.Fatalf("differing payloads must not collide")
	}
}

func TestIndentedIsValidJSON(t *testing.T) {
	out, err := Indented(map[string]any{"a": 1, "b": []any{1, 2}})
	if err != nil {
		t.Fatalf("Indented: %v", err)
	}
	var v any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("Indented output is not valid JSON: %v", err)
	}
}

func TestIsIntegral(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"3", true},
		{"-4", true},
		{"3.0", false},
		{"3.5", false},
		{"0", true},
	}
	for _, tc := range cases {
		n := json.Number(tc.raw)
		if got := IsIntegral(n); got != tc.want {
			t.Errorf("IsIntegral(%s) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestRejectFloatsRejectsNestedFraction(t *testing.T) {
	v, err := DecodeStrict([]byte(`{"a":1,"b":[1,2,{"c":1.5}]}`), false)
	if err != nil {
		t.Fatalf("DecodeStrict: %v", err)
	}
	if err := RejectFloats(v); err == nil {
		t.Fatalf("expected RejectFloats to reject a nested fractional value")
	}
}

func TestDecodeStrictAcceptsIntegerOnlyPayload(t *testing.T) {
	if _, err := DecodeStrict([]byte(`{"a":1,"b":[1,2,3]}`), true); err != nil {
		t.Fatalf("DecodeStrict rejected an all-integer payload: %v", err)
	}
	if _, err := DecodeStrict([]byte(`{"a":1.5}`), true); err == nil {
		t.Fatalf("DecodeStrict must reject a fractional value in strict mode")
	}
}
