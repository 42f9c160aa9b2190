package security

import "testing"

func TestGenerateTokensUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		token, errGen := GenerateSessionToken()
		if errGen != nil {
			t.Fatalf("generate: %v", errGen)
		}
		if token == "" {
			t.Fatal("empty token")
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestHashTokenStable(t *testing.T) {
	raw, errGen := GenerateResetToken()
	if errGen != nil {
		t.Fatalf("generate: %v", errGen)
	}
	if HashToken(raw) != HashToken(raw) {
		t.Fatal("hash not deterministic")
	}
	if HashToken(raw) == HashToken(raw+"x") {
		t.Fatal("distinct tokens share a hash")
	}
	if len(HashToken(raw)) != 64 {
		t.Fatalf("unexpected digest length: %d", len(HashToken(raw)))
	}
}
