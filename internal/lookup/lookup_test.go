package lookup

import (
	"os"
	"path/filepath"
	"testing"

	"retail-insights/internal/models"
)

func TestDefault_Sections(t *testing.T) {
	tables := Default()

	if tables.Unspecified != "غير محدد" {
		t.Errorf("Unspecified = %q", tables.Unspecified)
	}
	if len(tables.Segments) != 10 {
		t.Errorf("len(Segments) = %d, want 10", len(tables.Segments))
	}
	if got := tables.Segment("premium"); got.Color != "#10b981" || got.Name != "متميز" {
		t.Errorf("Segment(premium) = %+v", got)
	}
	if Default() != tables {
		t.Error("Default() should return the same parsed tables")
	}
}

func TestTables_CanonicalCity(t *testing.T) {
	tables := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"Cairo", "Cairo Governorate"},
		{"cairo governorate 11765", "Cairo Governorate"},
		{" الجيزه ", "Giza Governorate"},
		{"Al Giza", "Giza Governorate"},
		{"Hurghada 84511", "Hurghada"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := tables.CanonicalCity(tt.in); got != tt.want {
				t.Errorf("CanonicalCity(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTables_CityInAddress(t *testing.T) {
	tables := Default()
	tests := []struct {
		address string
		want    string
		wantOK  bool
	}{
		{"12 Road 9, Maadi, Cairo Governorate 11728", "Cairo Governorate", true},
		{"شارع الهرم، الجيزة", "Giza Governorate", true},
		{"Al-Qalyubia, Banha", "Al-Qalyubia Governorate", true},
		{"Unknown street", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, ok := tables.CityInAddress(tt.address)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CityInAddress(%q) = (%q, %v), want (%q, %v)", tt.address, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTables_AreaFromAddress(t *testing.T) {
	tables := Default()
	tests := []struct {
		address string
		want    string
		wantOK  bool
	}{
		{"12 Road 9, Maadi, Cairo Governorate, 11728", "Maadi", true},
		{"Nasr City, Cairo", "Nasr City", true},
		{"Maadi", "", false},
		{"Cairo, 11728", "", false},
		{" , ,", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, ok := tables.AreaFromAddress(tt.address)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("AreaFromAddress(%q) = (%q, %v), want (%q, %v)", tt.address, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTables_TypeLabel(t *testing.T) {
	tables := Default()
	tests := map[string]string{
		"Cafe":        "كافيه",
		"coffee shop": "كافيه",
		"Add a label": "غير محدد",
		"0":           "غير محدد",
		"":            "غير محدد",
		"Barbershop":  "Barbershop",
	}
	for in, want := range tests {
		if got := tables.TypeLabel(in); got != want {
			t.Errorf("TypeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTables_SegmentFallback(t *testing.T) {
	got := Default().Segment(models.Segment("vip"))
	if got.Name != "vip" || got.Color == "" {
		t.Errorf("Segment(vip) = %+v", got)
	}
}

func TestLoad_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	content := `
unspecified: "N/A"
cities:
  - canonical: Luxor Governorate
    aliases: [Luxor, الأقصر]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tables.Unspecified != "N/A" {
		t.Errorf("Unspecified = %q", tables.Unspecified)
	}
	if got := tables.CanonicalCity("luxor"); got != "Luxor Governorate" {
		t.Errorf("CanonicalCity(luxor) = %q", got)
	}
	if got := tables.CanonicalCity("Cairo"); got != "Cairo" {
		t.Errorf("replaced city section should drop Cairo, got %q", got)
	}
	if len(tables.Segments) != 10 {
		t.Error("segments section should fall back to the embedded table")
	}
	if Default().Unspecified != "غير محدد" {
		t.Error("override must not mutate the embedded tables")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cities:\n  - aliases: [x]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject a city without a canonical name")
	}

	tables, err := Load("")
	if err != nil || tables != Default() {
		t.Errorf("Load(\"\") = %v, %v", tables, err)
	}
}
