package auth

import (
	"testing"
	"time"
)

// ─── Password hashing (Argon2id, intentionally slow) ────────────────

func BenchmarkHasher_Hash(b *testing.B) {
	h := NewHasher(DefaultPasswordParams())
	for i := 0; i < b.N; i++ {
		h.Hash("correct-horse-battery-staple") //nolint:errcheck // benchmark
	}
}

func BenchmarkHasher_Verify(b *testing.B) {
	h := NewHasher(DefaultPasswordParams())
	digest, err := h.Hash("correct-horse-battery-staple")
	if err != nil {
		b.Fatalf("Hash: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Verify("correct-horse-battery-staple", digest) //nolint:errcheck // benchmark
	}
}

// ─── Session tokens (per-request hot path) ──────────────────────────

func BenchmarkTokenService_Issue(b *testing.B) {
	svc, err := NewTokenService(testSecret, time.Hour, nil)
	if err != nil {
		b.Fatalf("NewTokenService: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		svc.Issue("bench", RoleAdmin) //nolint:errcheck // benchmark
	}
}

func BenchmarkTokenService_Verify(b *testing.B) {
	svc, err := NewTokenService(testSecret, time.Hour, nil)
	if err != nil {
		b.Fatalf("NewTokenService: %v", err)
	}
	token, err := svc.Issue("bench", RoleAdmin)
	if err != nil {
		b.Fatalf("Issue: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		svc.Verify(token) //nolint:errcheck // benchmark
	}
}

func BenchmarkMatrix_Authorize(b *testing.B) {
	m := DefaultMatrix()
	id := Identity{Username: "bench", Role: RoleUser}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Authorize("/api/user/profile", id, true) //nolint:errcheck // benchmark
	}
}
