package crypto

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCanonicalizeOrdersAndStripsNulls(t *testing.T) {
	got, err := Canonicalize(map[string]any{
		"suggestions": []any{"b", "a"},
		"score":       72,
		"url":         nil,
		"metadata":    map[string]any{"z": nil, "check_depth": "full"},
	})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	want := `{"metadata":{"check_depth":"full"},"score":72,"suggestions":["b","a"]}`
	if string(got) != want {
		t.Fatalf("unexpected canonical json:\n%s\nwant:\n%s", got, want)
	}
}

func TestCanonicalizeRejectsFloats(t *testing.T) {
	if _, err := Canonicalize(0.5); err != ErrFloatNotAllowed {
		t.Fatalf("expected ErrFloatNotAllowed, got %v", err)
	}
	if _, err := Canonicalize(json.Number("1e3")); err != ErrFloatNotAllowed {
		t.Fatalf("expected ErrFloatNotAllowed for json number, got %v", err)
	}
}

func TestCanonicalizeNFC(t *testing.T) {
	got, err := Canonicalize(map[string]any{"title": "caf\u0065\u0301"})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(got) != "{\"title\":\"caf\u00e9\"}" {
		t.Fatalf("expected composed text, got %s", got)
	}

	_, err = Canonicalize(map[string]any{"e\u0301": 1, "\u00e9": 2})
	if err != ErrKeyCollision {
		t.Fatalf("expected ErrKeyCollision, got %v", err)
	}
}

func TestCanonicalizeRejectsUnsupported(t *testing.T) {
	type payload struct{ A int }
	if _, err := Canonicalize(payload{A: 1}); err != ErrUnsupportedType {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := Canonicalize(map[int]any{1: "a"}); err != ErrNonStringMapKey {
		t.Fatalf("expected ErrNonStringMapKey, got %v", err)
	}
}

func TestCanonicalizeJSONStructs(t *testing.T) {
	type violation struct {
		Type    string `json:"type"`
		Penalty int    `json:"penalty"`
	}
	type result struct {
		Score      int         `json:"score"`
		Violations []violation `json:"violations"`
		Note       *string     `json:"note"`
	}

	got, err := CanonicalizeJSON(result{Score: 40, Violations: []violation{{Type: "x", Penalty: -5}}})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"score":40,"violations":[{"penalty":-5,"type":"x"}]}`
	if string(got) != want {
		t.Fatalf("unexpected canonical json:\n%s\nwant:\n%s", got, want)
	}
}

func TestCanonicalDigestStable(t *testing.T) {
	a := map[string]any{"a": 1, "b": []any{"x"}}
	b := map[string]any{"b": []any{"x"}, "a": 1}

	da, _, err := CanonicalDigest(a)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	db, _, _ := CanonicalDigest(b)
	if da != db || !strings.HasPrefix(da, "sha256:") || len(da) != len("sha256:")+64 {
		t.Fatalf("unexpected digests %s %s", da, db)
	}

	if _, _, err := CanonicalDigest(func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestCanonicalizeNilShapes(t *testing.T) {
	var nilSlice []string
	var nilMap map[string]any
	got, err := Canonicalize(map[string]any{"list": []any{nil, nilSlice}, "obj": nilMap, "n": json.Number("-7")})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(got) != `{"list":[null,null],"n":-7}` {
		t.Fatalf("unexpected canonical json %s", got)
	}
}
