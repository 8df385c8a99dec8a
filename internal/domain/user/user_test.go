package user

import "testing"

func TestValidateUsername(t *testing.T) {
	ok := []string{"alice1", "alice_01", "a1234", "john-doe", "alice.dev"}
	for _, v := range ok {
		if err := ValidateUsername(v); err != nil {
			t.Fatalf("expected valid username %q: %v", v, err)
		}
	}
	bad := []string{"", "1alice", "a", "ab", "a_", "a..", "a*", "toolongusername_over_32_chars_abc"}
	for _, v := range bad {
		if err := ValidateUsername(v); err == nil {
			t.Fatalf("expected invalid username %q", v)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("workshop2024", "alice"); err != nil {
		t.Fatalf("expected valid password: %v", err)
	}
	if err := ValidatePassword("short1", "alice"); err == nil {
		t.Fatal("expected error for short password")
	}
	if err := ValidatePassword("lettersonlypass", "alice"); err == nil {
		t.Fatal("expected error for missing digit")
	}
	if err := ValidatePassword("1234567890", "alice"); err == nil {
		t.Fatal("expected error for missing letter")
	}
	if err := ValidatePassword("alice12345x", "alice"); err == nil {
		t.Fatal("expected error for containing username")
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Alice.Dev "); got != "alice.dev" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
