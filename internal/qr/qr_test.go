package qr

import (
	"bytes"
	"image/png"
	"testing"
)

func TestNewGenerator_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
		want int
	}{
		{name: "zero uses default", size: 0, want: DefaultSize},
		{name: "below minimum", size: 10, want: MinSize},
		{name: "above maximum", size: 99999, want: MaxSize},
		{name: "in range", size: 300, want: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := NewGenerator("https://verify.example.com", tt.size).size; got != tt.want {
				t.Errorf("size = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerator_Enabled(t *testing.T) {
	t.Parallel()

	if NewGenerator("", 0).Enabled() {
		t.Error("Enabled() = true without base URL")
	}
	if NewGenerator("  ", 0).Enabled() {
		t.Error("Enabled() = true for blank base URL")
	}
	if !NewGenerator("https://verify.example.com", 0).Enabled() {
		t.Error("Enabled() = false with base URL")
	}

	var nilGen *Generator
	if nilGen.Enabled() {
		t.Error("nil generator reports enabled")
	}
}

func TestGenerator_VerifyURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base string
		id   string
		want string
	}{
		{base: "https://v.example.com/verify", id: "CERT-1", want: "https://v.example.com/verify/CERT-1"},
		{base: "https://v.example.com/verify/", id: "CERT-1", want: "https://v.example.com/verify/CERT-1"},
		{base: "https://v.example.com", id: "a b#c", want: "https://v.example.com/a%20b%23c"},
	}

	for _, tt := range tests {
		if got := NewGenerator(tt.base, 0).VerifyURL(tt.id); got != tt.want {
			t.Errorf("VerifyURL(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestGenerator_PNG(t *testing.T) {
	t.Parallel()

	data, err := NewGenerator("https://verify.example.com", 128).PNG("CERT-2024-001")
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("image size = %dx%d, want 128x128", b.Dx(), b.Dy())
	}
}
