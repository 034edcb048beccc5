package gateway

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
)

// Error is the only error type the client returns.
// Err is one of core.ErrTransport, core.ErrAuthentication, core.ErrStatus or core.ErrDecode.
type Error struct {
	Op      string // eg. "GET /students"
	Status  int    // 0 when no response was received
	Message string
	Fields  map[string]string // field errors of a rejected form, if any
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach the taxonomy sentinel.
func (e *Error) Cause() error { return e.Err }

// errorMessage extracts a human readable message from an error body.
// The server answers {"error": "..."}, {"message": "..."} or a {field: message} map.
func errorMessage(body string) (string, map[string]string) {
	v, err := school.Decode([]byte(body))
	if err != nil {
		return strings.TrimSpace(truncate(body, 200)), nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return "", nil
	}
	rec := school.Record(obj)
	if msg := rec.String("error", "message", "detail"); msg != "" {
		return msg, nil
	}

	fields := make(map[string]string, len(obj))
	for k := range obj {
		if s := rec.String(k); s != "" {
			fields[k] = s
		}
	}
	if len(fields) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; "), fields
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func statusError(op string, status int, body string, cause error) *Error {
	msg, fields := errorMessage(body)
	return &Error{Op: op, Status: status, Message: msg, Fields: fields, Err: cause}
}

// IsStatus reports whether err is a gateway error with the status code.
func IsStatus(err error, status int) bool {
	var gErr *Error
	return errors.As(err, &gErr) && gErr.Status == status
}
