package winid

import "testing"

func testRules() Rules {
	return NewRules([]string{"window:"}, []string{"org.gnome.Nautilus"})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
	}{
		{"org.gnome.Nautilus.desktop", "org.gnome.nautilus"},
		{"Firefox", "firefox"},
		{"  code.desktop ", "code"},
		{"org.gnome.nautilus", "org.gnome.nautilus"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.raw, tt.want, got)
		}
	}
}

func TestDerivePrefersAppID(t *testing.T) {
	r := testRules()
	id, ok := r.Derive("org.gnome.Nautilus.desktop", "Navigator")
	if !ok || id != "org.gnome.nautilus" {
		t.Fatalf("expected org.gnome.nautilus, got %q (ok=%v)", id, ok)
	}
}

func TestDeriveFallsBackToClass(t *testing.T) {
	r := testRules()
	id, ok := r.Derive("", "Navigator")
	if !ok || id != "navigator" {
		t.Fatalf("expected navigator, got %q (ok=%v)", id, ok)
	}
}

func TestDeriveSkipsTransientAppID(t *testing.T) {
	r := testRules()

	id, ok := r.Derive("window:22", "Gimp")
	if !ok || id != "gimp" {
		t.Fatalf("expected class fallback gimp, got %q (ok=%v)", id, ok)
	}

	if _, ok := r.Derive("window:22", ""); ok {
		t.Fatal("expected no identity from a transient app id alone")
	}
}

func TestDeriveNothingUsable(t *testing.T) {
	r := testRules()
	if id, ok := r.Derive("", ""); ok {
		t.Fatalf("expected ok=false, got %q", id)
	}
}

func TestTransient(t *testing.T) {
	r := testRules()
	if !r.Transient("window:481") {
		t.Fatal("expected window:481 to be transient")
	}
	if !r.Transient("WINDOW:481") {
		t.Fatal("expected match to ignore case")
	}
	if r.Transient("org.gnome.Nautilus") {
		t.Fatal("expected real app id not to be transient")
	}
}

func TestProvisional(t *testing.T) {
	r := testRules()
	if !r.Provisional("org.gnome.nautilus") {
		t.Fatal("expected org.gnome.nautilus to be provisional")
	}
	if r.Provisional("firefox") {
		t.Fatal("expected firefox not to be provisional")
	}
}
