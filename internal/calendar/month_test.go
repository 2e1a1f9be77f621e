package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthTable(t *testing.T) {
	got, err := ParseMonthTable("September_2025")
	if err != nil {
		t.Fatalf("ParseMonthTable() error = %v", err)
	}
	if got.Month != time.September || got.Year != 2025 {
		t.Errorf("ParseMonthTable() = %+v, want September 2025", got)
	}
}

func TestParseMonthTable_RoundTrip(t *testing.T) {
	for year := 2024; year <= 2027; year++ {
		for month := time.January; month <= time.December; month++ {
			table := MonthTable{Month: month, Year: year}
			got, err := ParseMonthTable(table.String())
			if err != nil {
				t.Fatalf("ParseMonthTable(%q) error = %v", table.String(), err)
			}
			if got != table {
				t.Errorf("ParseMonthTable(%q) = %+v, want %+v", table.String(), got, table)
			}
		}
	}
}

func TestParseMonthTable_Invalid(t *testing.T) {
	for _, key := range []string{
		"",
		"October2025",
		"Oct_2025",
		"october_2025",
		"October_25",
		"October_20x5",
		"October_0999",
		"Octember_2025",
	} {
		if _, err := ParseMonthTable(key); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseMonthTable(%q) error = %v, want ErrInvalidArgument", key, err)
		}
	}
}

func TestSortMonthTables(t *testing.T) {
	tables := []MonthTable{
		{Month: time.January, Year: 2026},
		{Month: time.October, Year: 2025},
		{Month: time.February, Year: 2025},
		{Month: time.December, Year: 2025},
	}

	SortMonthTables(tables)

	want := []string{"February_2025", "October_2025", "December_2025", "January_2026"}
	for i, key := range want {
		if tables[i].String() != key {
			t.Errorf("tables[%d] = %s, want %s", i, tables[i], key)
		}
	}
}

func TestMonthTable_Next(t *testing.T) {
	december := MonthTable{Month: time.December, Year: 2025}
	if got := december.Next().String(); got != "January_2026" {
		t.Errorf("Next() = %s, want January_2026", got)
	}
}
