package middleware

import (
	"net/http"
	"testing"
)

func TestAcceptsBrotli(t *testing.T) {
	cases := []struct {
		header string
		want   bool
	}{
		{"br", true},
		{"gzip, deflate, br", true},
		{"gzip,br", true},
		{"BR", true},
		{"gzip, deflate", false},
		{"", false},
		{"br;q=0", false},
		{"brotli", false},
		{"abr", false},
	}
	for _, tc := range cases {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Accept-Encoding", tc.header)
		}
		if got := acceptsBrotli(r); got != tc.want {
			t.Errorf("acceptsBrotli(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}
