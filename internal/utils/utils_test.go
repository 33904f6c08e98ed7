package utils

import (
	"strings"
	"testing"
)

func TestSafeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"report 2023.pdf", "report_2023.pdf"},
		{"  a/b\\c:d  ", "a_b_c_d"},
		{"plain-name_1.txt", "plain-name_1.txt"},
	}
	for _, c := range cases {
		if got := SafeFilename(c.in); got != c.want {
			t.Fatalf("SafeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	long := SafeFilename(strings.Repeat("a", 300))
	if len(long) != 200 {
		t.Fatalf("long name capped at %d, want 200", len(long))
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in    string
		stops []string
		want  string
	}{
		{"Acme Fund", []string{"foundation", "fund"}, "acme"},
		{"The Example Foundation", []string{"foundation", "fund"}, "theexample"},
		{"Plain Name", nil, "plainname"},
	}
	for _, c := range cases {
		if got := Slug(c.in, c.stops...); got != c.want {
			t.Fatalf("Slug(%q, %v) = %q, want %q", c.in, c.stops, got, c.want)
		}
	}
}

func TestAreSlicesEqual(t *testing.T) {
	if !AreSlicesEqual([]string{"a", "b"}, []string{"a", "b"}) {
		t.Fatal("equal slices reported unequal")
	}
	if AreSlicesEqual([]string{"a"}, []string{"a", "b"}) {
		t.Fatal("different lengths reported equal")
	}
	if AreSlicesEqual([]string{"a", "b"}, []string{"b", "a"}) {
		t.Fatal("different order reported equal")
	}
}
