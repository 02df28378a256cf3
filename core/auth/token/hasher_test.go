package token

import "testing"

func TestHash(t *testing.T) {
	h := Hash("some.jwt.token")

	if len(h) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h))
	}
	if h != Hash("some.jwt.token") {
		t.Error("hash must be deterministic")
	}
	if h == Hash("some.jwt.tokeN") {
		t.Error("different tokens must hash differently")
	}
}

func TestHash_EmptyInput(t *testing.T) {
	if len(Hash("")) != 64 {
		t.Error("empty input still yields a full-length digest")
	}
}
