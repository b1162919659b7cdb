package service

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := generateCode(examCodeLength)
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != examCodeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), examCodeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func TestCodeAlphabetExcludesLookalikes(t *testing.T) {
	for _, c := range "01IO" {
		if strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("alphabet contains lookalike %q", c)
		}
	}
}
