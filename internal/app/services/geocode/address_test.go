package geocode

import "testing"

func TestCleanAddress(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"서울 마포구 양화로 45 (서교동, 메세나폴리스)", "서울 마포구 양화로 45"},
		{"서울   종로구  세종대로 110", "서울 종로구 세종대로 110"},
		{"  Seoul City Hall  ", "Seoul City Hall"},
		{"(annex) main street (rear)", "main street"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanAddress(c.in); got != c.want {
			t.Fatalf("CleanAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
