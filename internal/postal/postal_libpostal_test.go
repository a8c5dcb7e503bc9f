//go:build libpostal

package postal

import "testing"

func TestPostcodeLibpostal(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"10 Main St, Boston MA 02139", "02139"},
		{"781 Franklin Ave Crown Heights Brooklyn NYC NY 11216 USA", "11216"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := Postcode(tt.address); got != tt.want {
				t.Errorf("Postcode(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}
