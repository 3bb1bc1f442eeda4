package dbx

import (
	"database/sql"
	"strings"
	"time"
)

// Assignments collects "col = ?" pairs for a partial UPDATE.
type Assignments struct {
	cols []string
	args []any
}

// Set appends an assignment.
func (a *Assignments) Set(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

// Len returns the number of assignments collected so far.
func (a *Assignments) Len() int { return len(a.cols) }

// Build renders "UPDATE table SET ... WHERE where" with the collected
// arguments followed by whereArgs. The caller rebinds the query.
func (a *Assignments) Build(table, where string, whereArgs ...any) (string, []any) {
	q := "UPDATE " + table + " SET " + strings.Join(a.cols, ", ") + " WHERE " + where
	args := make([]any, 0, len(a.args)+len(whereArgs))
	args = append(args, a.args...)
	args = append(args, whereArgs...)
	return q, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns s into a LIKE pattern matching any value that
// contains s. Use it with ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// NullTime converts a scanned nullable timestamp into a UTC pointer.
func NullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// NullString converts a scanned nullable string into a pointer.
func NullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// Now is the clock used by repositories for created_at / updated_at.
// Timestamps are truncated to microseconds, the PostgreSQL resolution.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
