package service

import "testing"

func TestContainsSoft404(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    bool
	}{
		{"plain phrase", "<h1>Page Not Found</h1>", true},
		{"mixed case", "Sorry, THIS DEAL IS NO LONGER AVAILABLE.", true},
		{"expired deal", "<p>This deal has expired, check back soon</p>", true},
		{"json error body", `{"message":"not found"}`, true},
		{"json error body with space", `{"message": "deal not found"}`, true},
		{"healthy product page", "<h1>50% off widgets</h1><button>Buy now</button>", false},
		{"empty body", "", false},
		{"near miss", "we found the page you wanted", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsSoft404(tt.snippet); got != tt.want {
				t.Errorf("containsSoft404(%q) = %v, want %v", tt.snippet, got, tt.want)
			}
		})
	}
}
