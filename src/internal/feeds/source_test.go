package feeds

import (
	"strings"
	"testing"
)

func TestNewRegistry_Builtin(t *testing.T) {
	r := NewRegistry()

	want := []string{
		"rw_ipbl", "rw_dombl", "rw_urlbl",
		"drop", "drop_v6", "edrop",
		"feodo_badip", "feodo_ip",
		"palevo", "zeus", "bambenek_c2",
	}
	if got := r.IDs(); !equalStrings(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}

	for _, src := range r.All() {
		if src.URL == "" || src.Name == "" {
			t.Errorf("Source %s is missing URL or name", src.ID)
		}
		if src.Parser.NeedsResolver() != (src.ID == "rw_dombl" || src.ID == "rw_urlbl") {
			t.Errorf("Source %s: unexpected resolver requirement", src.ID)
		}
	}

	drop, ok := r.Get("drop")
	if !ok {
		t.Fatal("Expected drop source")
	}
	if drop.Comment != ';' || !drop.IsComment("; Spamhaus DROP List") || drop.IsComment("# not a comment") {
		t.Errorf("Unexpected comment handling for drop: %q", drop.Comment)
	}
}

func TestNewRegistryFrom_Rejects(t *testing.T) {
	valid := Source{ID: "a", Name: "A", URL: "http://a", Comment: '#'}

	tests := []struct {
		name    string
		sources []Source
		wantErr string
	}{
		{"missing id", []Source{{URL: "http://x", Comment: '#'}}, "without id"},
		{"missing url", []Source{{ID: "x", Comment: '#'}}, "no URL"},
		{"missing comment", []Source{{ID: "x", URL: "http://x"}}, "comment"},
		{"duplicate", []Source{valid, valid}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistryFrom(tt.sources)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistry_Select(t *testing.T) {
	r, err := NewRegistryFrom([]Source{
		{ID: "a", URL: "http://a", Comment: '#', EnabledByDefault: true},
		{ID: "b", URL: "http://b", Comment: '#'},
		{ID: "c", URL: "http://c", Comment: '#', EnabledByDefault: true},
	})
	if err != nil {
		t.Fatalf("NewRegistryFrom() error = %v", err)
	}

	tests := []struct {
		name     string
		enabled  []string
		disabled []string
		want     []string
		wantErr  bool
	}{
		{name: "defaults", want: []string{"a", "c"}},
		{name: "explicit keeps registry order", enabled: []string{"c", "b"}, want: []string{"b", "c"}},
		{name: "disabled wins", enabled: []string{"a", "b"}, disabled: []string{"a"}, want: []string{"b"}},
		{name: "disabled from defaults", disabled: []string{"c"}, want: []string{"a"}},
		{name: "unknown enabled", enabled: []string{"zz"}, wantErr: true},
		{name: "unknown disabled", disabled: []string{"zz"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Select(tt.enabled, tt.disabled)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			var ids []string
			for _, src := range got {
				ids = append(ids, src.ID)
			}
			if !equalStrings(ids, tt.want) {
				t.Errorf("Select() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestRegistry_WithOverrides(t *testing.T) {
	r := NewRegistry()

	o, err := r.WithOverrides(map[string]string{"zeus": "http://mirror.local/zeus.txt"})
	if err != nil {
		t.Fatalf("WithOverrides() error = %v", err)
	}
	zeus, _ := o.Get("zeus")
	if zeus.URL != "http://mirror.local/zeus.txt" {
		t.Errorf("Expected overridden URL, got %s", zeus.URL)
	}
	orig, _ := r.Get("zeus")
	if orig.URL == zeus.URL {
		t.Error("Expected original registry to be unchanged")
	}
	if !equalStrings(o.IDs(), r.IDs()) {
		t.Error("Expected overrides to keep registry order")
	}

	if _, err := r.WithOverrides(map[string]string{"nope": "http://x"}); err == nil {
		t.Error("Expected error for unknown source")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	got := r.Names([]string{"zeus", "drop"})
	want := []string{"Spamhaus DROP", "Zeus IP"}
	if !equalStrings(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
