package parser

import (
	"math"
	"testing"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Toko   Maju\u00a0Jaya ": "Toko Maju Jaya",
		"PT. Sinar (Abadi)":        "PT Sinar Abadi",
		"12.345/AB-01":             "12345/AB-01",
		"Warung\tBu\nSiti":         "Warung Bu Siti",
		"Café Ñusa":                "Caf usa",
		"":                         "",
	}
	for in, want := range cases {
		if got := CleanText(in); got != want {
			t.Fatalf("CleanText(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestIsBlank(t *testing.T) {
	t.Parallel()

	blank := []any{nil, "", "  ", "-", "nan", "NaN", "None", "NaT", math.NaN(), (*float64)(nil)}
	for _, v := range blank {
		if !IsBlank(v) {
			t.Fatalf("IsBlank(%#v)=false, want true", v)
		}
	}
	f := 0.0
	notBlank := []any{"0", "x", 0.0, &f, 12}
	for _, v := range notBlank {
		if IsBlank(v) {
			t.Fatalf("IsBlank(%#v)=true, want false", v)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"1,250,000":         1250000,
		"Rp 500.000":        500,
		"Rp1,234.50":        1234.5,
		" 42 ":              42,
		"IDR 7,000":         7000,
		"\u00a01,000\u00a0": 1000,
	}
	for in, want := range cases {
		if got := ParseCurrency(in); got != want {
			t.Fatalf("ParseCurrency(%q)=%v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "abc", "Rp", "1.2.3"} {
		if got := ParseCurrency(in); !math.IsNaN(got) {
			t.Fatalf("ParseCurrency(%q)=%v, want NaN", in, got)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"", "-"},
		{"-", "-"},
		{0.0, "-"},
		{"0", "-"},
		{1234.0, "1,234"},
		{1234.5, "1,234.50"},
		{"1,250,000", "1,250,000"},
		{1000000, "1,000,000"},
		{"not a number", "not a number"},
	}
	for _, c := range cases {
		if got := FormatCurrency(c.in); got != c.want {
			t.Fatalf("FormatCurrency(%#v)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	t.Parallel()

	if got := FormatPercent(0.25); got != "25.00%" {
		t.Fatalf("FormatPercent(0.25)=%q", got)
	}
	if got := FormatPercent(-1.0); got != "-100.00%" {
		t.Fatalf("FormatPercent(-1)=%q", got)
	}
	if got := FormatPercent(nil); got != "-" {
		t.Fatalf("FormatPercent(nil)=%q", got)
	}
}

func TestToFloat(t *testing.T) {
	t.Parallel()

	if f, ok := ToFloat([]byte("2,500")); !ok || f != 2500 {
		t.Fatalf("ToFloat([]byte)=%v,%v", f, ok)
	}
	if _, ok := ToFloat("abc"); ok {
		t.Fatalf("ToFloat(abc) should fail")
	}
	if f, ok := ToFloat(int64(7)); !ok || f != 7 {
		t.Fatalf("ToFloat(int64)=%v,%v", f, ok)
	}
}

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	if got := NormalizeColumnName("  Nama   Usaha "); got != "nama_usaha" {
		t.Fatalf("NormalizeColumnName=%q", got)
	}
}
