package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// stampColumns holds the three nullable columns behind a StageStamp
type stampColumns struct {
	by     sql.NullString
	byName sql.NullString
	at     sql.NullTime
}

func (s *stampColumns) dest() []interface{} {
	return []interface{}{&s.by, &s.byName, &s.at}
}

func (s *stampColumns) stamp() *entity.StageStamp {
	if !s.by.Valid && !s.at.Valid {
		return nil
	}
	return &entity.StageStamp{By: s.by.String, ByName: s.byName.String, At: s.at.Time.UTC()}
}

func stampArgs(s *entity.StageStamp) []interface{} {
	if s == nil {
		return []interface{}{nil, nil, nil}
	}
	at := s.At
	return []interface{}{nullString(s.By), nullString(s.ByName), nullTime(&at)}
}

// parseStatus decodes a stored status; anything outside the vocabulary is a malformed record
func parseStatus(kind domainwf.Kind, id, raw string) (domainwf.State, error) {
	st, err := domainwf.ParseState(kind, raw)
	if err != nil {
		return domainwf.StateNone, fmt.Errorf("%w: %s %s: %v", domainwf.ErrMalformedRecord, kind, id, err)
	}
	return st, nil
}

// statusFilter renders "status IN (?, ?)" for a non-empty list
func statusFilter(statuses []domainwf.State) (string, []interface{}) {
	marks := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, st := range statuses {
		marks[i] = "?"
		args[i] = string(st)
	}
	return "status IN (" + strings.Join(marks, ", ") + ")", args
}

// orderColumns maps a listing order to its ORDER BY clause
var orderColumns = map[port.Order]string{
	port.OrderCreatedAt:  "created_at DESC",
	port.OrderApprovedAt: "approved_at DESC, created_at DESC",
	port.OrderCheckedAt:  "checked_at DESC, created_at DESC",
	port.OrderReleasedAt: "released_at DESC, created_at DESC",
}

func orderClause(o port.Order, allowed ...port.Order) string {
	for _, a := range allowed {
		if a == o {
			return " ORDER BY " + orderColumns[o]
		}
	}
	return " ORDER BY " + orderColumns[port.OrderCreatedAt]
}

// likeEscaper escapes LIKE wildcards so ticket fragments match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
