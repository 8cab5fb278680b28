package parser

import "testing"

func TestIsMonthHeader(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"JANUARI", "januari 2025", " Feb", "AGUSTUS", "Dec-24", "mei"} {
		if !IsMonthHeader(s) {
			t.Fatalf("IsMonthHeader(%q)=false, want true", s)
		}
	}
	for _, s := range []string{"", "NOPD", "Pembayaran", "TOTAL"} {
		if IsMonthHeader(s) {
			t.Fatalf("IsMonthHeader(%q)=true, want false", s)
		}
	}
}

func TestMonthToISO(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label   string
		want    string
		matched bool
	}{
		{"januari", "2025-01", true},
		{"Agu", "2025-08", true},
		{"okt", "2025-10", true},
		{"DES", "2025-12", true},
		{"may", "2025-05", true},
		{"triwulan", "2025-01", false},
	}
	for _, c := range cases {
		got, matched := MonthToISO(c.label, 2025, 1)
		if got != c.want || matched != c.matched {
			t.Fatalf("MonthToISO(%q)=%q,%v, want %q,%v", c.label, got, matched, c.want, c.matched)
		}
	}
}

func TestPeriodToISO(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2024-11": "2024-11",
		"24-03":   "2024-03",
		"Maret":   "2025-03",
		"nov":     "2025-11",
	}
	for in, want := range cases {
		got, ok := PeriodToISO(in, 2025)
		if !ok || got != want {
			t.Fatalf("PeriodToISO(%q)=%q,%v, want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "nan", "Q1", "2025"} {
		if got, ok := PeriodToISO(in, 2025); ok {
			t.Fatalf("PeriodToISO(%q)=%q, want not ok", in, got)
		}
	}
}

func TestNormalizeMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		name  string
		order int
	}{
		{"2025-02", "februari", 2},
		{"25-12", "desember", 12},
		{"Agustus", "agustus", 8},
		{"oct", "oktober", 10},
	}
	for _, c := range cases {
		name, order, ok := NormalizeMonth(c.in)
		if !ok || name != c.name || order != c.order {
			t.Fatalf("NormalizeMonth(%q)=%q,%d,%v, want %q,%d", c.in, name, order, ok, c.name, c.order)
		}
	}
	for _, in := range []string{"2025-13", "bulan", ""} {
		if _, _, ok := NormalizeMonth(in); ok {
			t.Fatalf("NormalizeMonth(%q) should not be ok", in)
		}
	}
}

func TestMonthIndex(t *testing.T) {
	t.Parallel()

	if got := MonthIndex("Juni"); got != 5 {
		t.Fatalf("MonthIndex(Juni)=%d, want 5", got)
	}
	if got := MonthIndex("jun"); got != -1 {
		t.Fatalf("MonthIndex(jun)=%d, want -1", got)
	}
}
