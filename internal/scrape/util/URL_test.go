package util

import "testing"

func TestAbsoluteURL(t *testing.T) {
	cases := []struct {
		base, raw, want string
	}{
		{"", "https://x.com/a", "https://x.com/a"},
		{"", "http://x.com/a", "http://x.com/a"},
		{"", "//x.com/a", "https://x.com/a"},
		{"", "x.com/apply", "https://x.com/apply"},
		{"", "jobs.example.com:8443/apply", "https://jobs.example.com:8443/apply"},
		{"https://github.com/o/r", "/jobs/1", "https://github.com/jobs/1"},
		{"", "mailto:jobs@x.com", ""},
		{"", "javascript:void(0)", ""},
		{"", "#", ""},
		{"", "  ", ""},
	}
	for _, tc := range cases {
		if got := AbsoluteURL(tc.base, tc.raw); got != tc.want {
			t.Errorf("AbsoluteURL(%q, %q) = %q, want %q", tc.base, tc.raw, got, tc.want)
		}
	}
}

func TestLooksLikeURL(t *testing.T) {
	yes := []string{"https://x.com", "example.com/apply", "//cdn.x.io/a"}
	no := []string{"", "🔒", "Apply here", "closed", "a.b"}
	for _, s := range yes {
		if !LooksLikeURL(s) {
			t.Errorf("LooksLikeURL(%q) = false", s)
		}
	}
	for _, s := range no {
		if LooksLikeURL(s) {
			t.Errorf("LooksLikeURL(%q) = true", s)
		}
	}
}

func TestCanonicalizeURL(t *testing.T) {
	got := CanonicalizeURL("HTTPS://Jobs.Example.com/a?utm_source=x&id=2#frag")
	want := "https://jobs.example.com/a?id=2"
	if got != want {
		t.Fatalf("CanonicalizeURL = %q, want %q", got, want)
	}
}

func TestJoinLocations(t *testing.T) {
	got := JoinLocations([]string{"Toronto, ON", " toronto, on ", "", "Remote"})
	if got != "Toronto, ON; Remote" {
		t.Fatalf("JoinLocations = %q", got)
	}
}
