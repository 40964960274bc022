package core

import "strings"

// Row is a single result row keyed by column name.
type Row map[string]any

// Result is the uniform outcome of a statement. It is exactly one of
// *RowSet (reads) or *WriteSummary (writes).
type Result interface {
	isResult()
}

// RowSet is the result of a read statement.
type RowSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (*RowSet) isResult() {}

// Len returns the number of rows.
func (r *RowSet) Len() int { return len(r.Rows) }

// First returns the first row, or nil when the set is empty.
func (r *RowSet) First() Row {
	if len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// WriteSummary is the result of a write statement.
// InsertID is nil when the statement was not an INSERT or inserted nothing.
type WriteSummary struct {
	InsertID     *int64 `json:"insertId"`
	AffectedRows int64  `json:"affectedRows"`
}

func (*WriteSummary) isResult() {}

// AsRowSet returns the result as a row set, if it is one.
func AsRowSet(r Result) (*RowSet, bool) {
	rs, ok := r.(*RowSet)
	return rs, ok
}

// AsWriteSummary returns the result as a write summary, if it is one.
func AsWriteSummary(r Result) (*WriteSummary, bool) {
	ws, ok := r.(*WriteSummary)
	return ws, ok
}

// IsRead reports whether a canonical statement produces rows.
// Only a leading SELECT keyword counts; case and leading whitespace are ignored.
func IsRead(sql string) bool {
	return hasKeywordPrefix(sql, "SELECT")
}

// IsInsert reports whether a statement is an INSERT.
func IsInsert(sql string) bool {
	return hasKeywordPrefix(sql, "INSERT")
}

func hasKeywordPrefix(sql, keyword string) bool {
	s := strings.TrimLeft(sql, " \t\r\n")
	if len(s) < len(keyword) || !strings.EqualFold(s[:len(keyword)], keyword) {
		return false
	}
	if len(s) == len(keyword) {
		return true
	}
	c := s[len(keyword)]
	return !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
}
