package phone

import "testing"

func TestMatchKeyKeepsLastTenDigits(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"333 123 4567":      "3331234567",
		"+39 333-123-4567":  "3331234567",
		"0039 (333)1234567": "3331234567",
		"12345":             "12345",
		"tel: n/a":          "",
	}

	for input, want := range cases {
		if got := MatchKey(input); got != want {
			t.Fatalf("MatchKey(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDigitsFoldsNonASCIIDigits(t *testing.T) {
	if got := Digits("٣٣٣ ١٢٣ ٤٥٦٧"); got != "3331234567" {
		t.Fatalf("expected Arabic-Indic digits folded to ASCII, got %q", got)
	}
	if MatchKey("٣٣٣١٢٣٤٥٦٧") != MatchKey("333 123 4567") {
		t.Fatalf("expected folded digits to share a match key")
	}
}

func TestMatchKeyCollapsesSharedSuffix(t *testing.T) {
	if MatchKey("+1 333 123 4567") != MatchKey("+39 333 123 4567") {
		t.Fatalf("expected numbers sharing the last ten digits to share a match key")
	}
}

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164InRegion("06 12345678", "NL"); got != "+31612345678" {
		t.Fatalf("expected +31612345678, got %q", got)
	}
	if got := NormalizeE164InRegion("  not a number ", ""); got != "not a number" {
		t.Fatalf("expected trimmed input for unparsable number, got %q", got)
	}
	if got := NormalizeE164InRegion("   ", "IT"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := NormalizeE164InRegion("333 123 4567", ""); got != "+393331234567" {
		t.Fatalf("expected default region IT, got %q", got)
	}
}
