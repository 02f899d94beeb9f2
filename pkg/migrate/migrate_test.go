package migrate

import "testing"

func TestDialectFor(t *testing.T) {
	cases := map[string]string{
		"postgres": "postgres",
		"sqlite":   "sqlite3",
		"SQLite":   "sqlite3",
		"":         "postgres",
	}
	for driver, want := range cases {
		if got := dialectFor(driver); got != want {
			t.Fatalf("dialectFor(%q) = %q, want %q", driver, got, want)
		}
	}
}
