package slug

import "testing"

// TestGenerate exercises the slug generator with typical page titles,
// punctuation, whitespace and edge cases.
func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple two words", input: "Spring Concert", want: "spring-concert"},
		{name: "title with year", input: "Farewell 2025", want: "farewell-2025"},
		{name: "punctuation", input: "Farewell, Class of 2025!", want: "farewell-class-of-2025"},
		{name: "ampersand", input: "Arts & Crafts Day", want: "arts-crafts-day"},
		{name: "apostrophe", input: "Principal's Assembly", want: "principals-assembly"},
		{name: "version dots removed", input: "Sports Day 2.0", want: "sports-day-20"},
		{name: "leading and trailing spaces", input: "  annual day  ", want: "annual-day"},
		{name: "multiple spaces collapsed", input: "annual    day", want: "annual-day"},
		{name: "tabs become hyphens", input: "annual\tday", want: "annual-day"},
		{name: "newlines become hyphens", input: "annual\nday", want: "annual-day"},
		{name: "hyphens and spaces mixed", input: "  --annual -- day--  ", want: "annual-day"},
		{name: "date-like", input: "2025-03-14", want: "2025-03-14"},
		{name: "empty", input: "", want: ""},
		{name: "only special", input: "!@#$%^&*()", want: ""},
		{name: "only hyphens", input: "-----", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestGenerate_Idempotent verifies that a valid slug is returned unchanged.
func TestGenerate_Idempotent(t *testing.T) {
	for _, s := range []string{"spring-concert", "farewell-2025", "a", "123"} {
		if got := Generate(s); got != s {
			t.Errorf("Generate(%q) = %q, want idempotent result", s, got)
		}
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "amelia", want: "/amelia"},
		{input: "/amelia", want: "/amelia"},
		{input: "//amelia", want: "/amelia"},
		{input: "Amelia Hart", want: "/amelia-hart"},
		{input: "  /Rohan K.  ", want: "/rohan-k"},
		{input: "", want: ""},
		{input: "/", want: ""},
		{input: "!!!", want: ""},
	}
	for _, tt := range tests {
		if got := Route(tt.input); got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	if got := Segment(Route("amelia")); got != "amelia" {
		t.Errorf("Segment(Route) = %q, want amelia", got)
	}
	if got := Segment("plain"); got != "plain" {
		t.Errorf("Segment without slash = %q", got)
	}
}

func TestIsReserved(t *testing.T) {
	for _, s := range []string{"admin", "memories", "/about", "farewell-2025"} {
		if !IsReserved(s) {
			t.Errorf("IsReserved(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"spring-concert", "/amelia", ""} {
		if IsReserved(s) {
			t.Errorf("IsReserved(%q) = true, want false", s)
		}
	}
}
