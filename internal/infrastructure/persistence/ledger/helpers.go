// Package ledger provides the SQL-based implementations of the venue
// ledger repositories (Lead, Client, Channel, Reservation, MergeRun,
// Preference).
package ledger

import (
	"time"
)

// rowScanner lets scan helpers serve both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Timestamp layouts accepted when reading ledger rows. The local sqlite
// driver hands back time.Time directly; the remote libsql driver returns
// strings in one of these layouts.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// scanTime normalizes a scanned timestamp value across drivers.
func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	}
	return time.Time{}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// sqlTime renders a timestamp parameter, mapping the zero value to NULL.
func sqlTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
