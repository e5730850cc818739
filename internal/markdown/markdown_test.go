package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "# Sports Day", `<h1 id="sports-day">Sports Day</h1>`},
		{"emphasis", "a **great** year", "<strong>great</strong>"},
		{"strikethrough", "~~rain~~", "<del>rain</del>"},
		{"hard wrap", "line one\nline two", "line one<br>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("ToHTML(%q) = %q, want substring %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRawHTMLIsNotPassedThrough(t *testing.T) {
	got := string(Render("<script>alert(1)</script>"))
	if strings.Contains(got, "<script>") {
		t.Errorf("raw script survived: %q", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	if got := Render("   "); got != "" {
		t.Errorf("Render(blank) = %q", got)
	}
}

func TestInline(t *testing.T) {
	if got := Inline("Class of *2025*"); got != "Class of <em>2025</em>" {
		t.Errorf("Inline = %q", got)
	}
	multi := string(Inline("one\n\ntwo"))
	if strings.Count(multi, "<p>") != 2 {
		t.Errorf("multi-paragraph input should keep paragraphs: %q", multi)
	}
}
