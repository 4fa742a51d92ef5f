package objectkey_test

import (
	"testing"

	"contentstudio/internal/objectkey"
)

func TestWithPrefixIsIdempotent(t *testing.T) {
	r := objectkey.NewResolver("/dev/")
	inputs := []string{
		"emails_v2/b1/batch.json",
		"/emails_v2/b1/batch.json",
		"\\emails_v2\\b1\\hero.png",
		"dev/emails_v2/b1/batch.json",
		"",
		"//dev/x",
	}
	for _, in := range inputs {
		once := r.WithPrefix(in)
		twice := r.WithPrefix(once)
		if once != twice {
			t.Fatalf("WithPrefix(%q) not idempotent: %q vs %q", in, once, twice)
		}
	}
}

func TestWithPrefixNormalizes(t *testing.T) {
	r := objectkey.NewResolver("dev")
	tests := []struct {
		in   string
		want string
	}{
		{"emails_v2/b1/batch.json", "dev/emails_v2/b1/batch.json"},
		{"///emails_v2/b1/batch.json", "dev/emails_v2/b1/batch.json"},
		{`emails_v2\b1\hero.png`, "dev/emails_v2/b1/hero.png"},
		{"dev/emails_v2/b1", "dev/emails_v2/b1"},
		{"devices/x", "dev/devices/x"},
	}
	for _, tt := range tests {
		if got := r.WithPrefix(tt.in); got != tt.want {
			t.Fatalf("WithPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmptyPrefixDisablesPrefixing(t *testing.T) {
	r := objectkey.NewResolver(" / ")
	if got := r.WithPrefix("/emails_v2/b1/batch.json"); got != "emails_v2/b1/batch.json" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestBatchKeys(t *testing.T) {
	r := objectkey.NewResolver("dev")
	if got := r.BatchRoot(); got != "dev/emails_v2/" {
		t.Fatalf("BatchRoot = %q", got)
	}
	if got := r.BatchFolder("b1"); got != "dev/emails_v2/b1/" {
		t.Fatalf("BatchFolder = %q", got)
	}
	if got := r.BatchDocument("b1"); got != "dev/emails_v2/b1/batch.json" {
		t.Fatalf("BatchDocument = %q", got)
	}
	if got := r.Manifest("b1"); got != "dev/emails_v2/b1/_manifest.json" {
		t.Fatalf("Manifest = %q", got)
	}
	if got := r.BatchObject("b1", "/img/hero.png"); got != "dev/emails_v2/b1/img/hero.png" {
		t.Fatalf("BatchObject = %q", got)
	}
	if got := r.Relative("dev/emails_v2/b1/"); got != "emails_v2/b1/" {
		t.Fatalf("Relative = %q", got)
	}
}

func TestBatchIDFromPrefix(t *testing.T) {
	if got := objectkey.BatchIDFromPrefix("dev/emails_v2/2025-01-02_101010/"); got != "2025-01-02_101010" {
		t.Fatalf("BatchIDFromPrefix = %q", got)
	}
	if got := objectkey.BatchIDFromPrefix("/"); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestExtractBatchID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"folder url", "https://storage.googleapis.com/bkt/dev/emails_v2/abc%20d/hero.png", "abc d", true},
		{"document url", "https://x/emails_v2/b-123/batch.json", "b-123", true},
		{"timestamp", "see 2025-03-04_121314 please", "2025-03-04_121314", true},
		{"clean id", "  batch12345 ", "batch12345", true},
		{"short", "abc", "", false},
		{"path without batch", "a/b/c/d/e/f", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := objectkey.ExtractBatchID(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ExtractBatchID(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestContentTypeByExt(t *testing.T) {
	if got := objectkey.ContentTypeByExt("a/HERO.PNG"); got != "image/png" {
		t.Fatalf("png type = %q", got)
	}
	if got := objectkey.ContentTypeByExt("a/blob"); got != "application/octet-stream" {
		t.Fatalf("default type = %q", got)
	}
	if !objectkey.IsImage("x.JPEG") || objectkey.IsImage("x.json") {
		t.Fatal("IsImage mismatch")
	}
	if !objectkey.IsJSON("x/Batch.JSON") {
		t.Fatal("IsJSON mismatch")
	}
}
