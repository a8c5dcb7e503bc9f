package normalize

import (
	"reflect"
	"testing"
)

func TestCanonicalAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantZip string
	}{
		{
			name:    "simple address with zip",
			input:   "123 Main Street, Springfield, IL 62704",
			wantKey: "123 main st springfield il 62704",
			wantZip: "62704",
		},
		{
			name:    "suffixes abbreviated",
			input:   "  45  Oak   Avenue ,  Apt. 3 ",
			wantKey: "45 oak ave apt 3",
			wantZip: "",
		},
		{
			name:    "accents folded",
			input:   "9 Rue Café Boulevard",
			wantKey: "9 rue cafe blvd",
			wantZip: "",
		},
		{
			name:    "zip plus four",
			input:   "77 Parkway Drive Austin TX 78701-1234",
			wantKey: "77 pkwy dr austin tx 78701-1234",
			wantZip: "78701",
		},
		{
			name:    "five digit house number keeps trailing zip",
			input:   "12345 Lake Road, Denver 80202",
			wantKey: "12345 lake rd denver 80202",
			wantZip: "80202",
		},
		{
			name:    "blank",
			input:   "   ",
			wantKey: "",
			wantZip: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, zip, _ := CanonicalAddress(tt.input)

			if key != tt.wantKey {
				t.Errorf("CanonicalAddress() key = %q, want %q", key, tt.wantKey)
			}
			if zip != tt.wantZip {
				t.Errorf("CanonicalAddress() zip = %q, want %q", zip, tt.wantZip)
			}
		})
	}
}

func TestCanonicalAddressTokens(t *testing.T) {
	_, _, tokens := CanonicalAddress("1 Elm Court")
	want := []string{"1", "elm", "ct"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("tokens = %v, want %v", tokens, want)
	}
}

func TestDisplayAddress(t *testing.T) {
	got := DisplayAddress("  12   High St \t Apt 4 ")
	if got != "12 High St Apt 4" {
		t.Errorf("DisplayAddress() = %q", got)
	}
}

func TestZipFromField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"90210", "90210"},
		{" 90210 ", "90210"},
		{"90210-1234", "90210"},
		{"902101234", "90210"},
		{"ZIP 02139", "02139"},
		{"9021", "09021"},
		{"2139", "02139"},
		{" 501 ", "00501"},
		{"9021O", ""},
		{"", ""},
		{"n/a", ""},
		{"1234567", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ZipFromField(tt.input); got != tt.want {
				t.Errorf("ZipFromField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestZipFromText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10 Main St, Boston MA 02139", "02139"},
		{"No zip here", ""},
		{"Two zips 11111 and 22222-3333", "22222"},
		{"Truncated 9021", ""},
		{"12345 Oak Ave, Springfield 62704", "62704"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ZipFromText(tt.input); got != tt.want {
				t.Errorf("ZipFromText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeZip(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"90210", "90210"},
		{"2139", "02139"},
		{"2139.0", "21390"},
		{"abc", ""},
		{"123456", "23456"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeZip(tt.input); got != tt.want {
				t.Errorf("NormalizeZip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCanonicalZip(t *testing.T) {
	if !IsCanonicalZip("00501") {
		t.Error("00501 should be canonical")
	}
	for _, bad := range []string{"0501", "005011", "0050a", ""} {
		if IsCanonicalZip(bad) {
			t.Errorf("%q should not be canonical", bad)
		}
	}
}
