package idgen

import "testing"

func TestGenerate_Length(t *testing.T) {
	id, err := Generate(DefaultAlphabet, 10)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len([]rune(id)) != 10 {
		t.Errorf("Generate() length = %d, want 10", len([]rune(id)))
	}
}

func TestGenerate_AlphabetOnly(t *testing.T) {
	allowed := make(map[rune]bool)
	for _, r := range DefaultAlphabet {
		allowed[r] = true
	}
	id, err := Generate(DefaultAlphabet, 200)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for _, r := range id {
		if !allowed[r] {
			t.Fatalf("Generate() produced rune %q outside alphabet", r)
		}
	}
}

func TestGenerate_EmptyAlphabetRejected(t *testing.T) {
	if _, err := Generate(nil, 10); err == nil {
		t.Fatal("Generate() with empty alphabet should error")
	}
}

func TestGenerateID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := GenerateID()
		if err != nil {
			t.Fatalf("GenerateID() error: %v", err)
		}
		if seen[id] {
			t.Fatalf("GenerateID() produced a duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestNewRequestIDPool_Size(t *testing.T) {
	pool, err := NewRequestIDPool()
	if err != nil {
		t.Fatalf("NewRequestIDPool() error: %v", err)
	}
	if len(pool) != RequestIDBatchSize {
		t.Errorf("NewRequestIDPool() size = %d, want %d", len(pool), RequestIDBatchSize)
	}
	seen := make(map[string]bool)
	for _, id := range pool {
		if seen[id] {
			t.Fatalf("NewRequestIDPool() produced a duplicate id: %s", id)
		}
		seen[id] = true
	}
}
