package attachment

import "testing"

func TestParseFileSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"20MB", 20 * 1024 * 1024},
		{"512KB", 512 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"7", 7},
		{" 5mb ", 5 * 1024 * 1024},
		{"garbage", 20 * 1024 * 1024},
		{"-3MB", 20 * 1024 * 1024},
	}
	for _, tc := range cases {
		if got := ParseFileSize(tc.in); got != tc.want {
			t.Errorf("ParseFileSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
