package pathutil

import "testing"

func TestIsHidden(t *testing.T) {
	cases := map[string]bool{
		"/home/user/.config":     true,
		"/home/user/.bashrc":     true,
		"/home/user/Downloads":  false,
		".":                     true,
		"..":                    true,
		"/tmp/.cache/thumbnail": false,
		"report.pdf":            false,
	}
	for path, want := range cases {
		if got := IsHidden(path); got != want {
			t.Errorf("IsHidden(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"a":       "A",
		"archive": "Archive",
		"Already": "Already",
		"été":     "Été",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
