package history

import (
	"strings"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain text", "hello there", false},
		{"unicode", "héllo 世界 👋", false},
		{"empty", "", true},
		{"whitespace only", "   \t\n", true},
		{"at byte limit", strings.Repeat("a", 2000), false},
		{"over byte limit", strings.Repeat("a", MaxMessageBytes+1), true},
		{"over char limit", strings.Repeat("世", MaxTextChars+1), true},
		{"invalid utf8", "abc\xff\xfedef", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessage(tc.text)
			if tc.wantErr && err == nil {
				t.Errorf("expected error for %q", tc.name)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tc.name, err)
			}
		})
	}
}

func TestPairNormalization(t *testing.T) {
	a1, b1 := pair("alice", "bob")
	a2, b2 := pair("bob", "alice")
	if a1 != a2 || b1 != b2 {
		t.Errorf("pair must be order-independent: (%s,%s) vs (%s,%s)", a1, b1, a2, b2)
	}
	if a1 >= b1 {
		t.Errorf("pair must be sorted, got (%s,%s)", a1, b1)
	}
}
