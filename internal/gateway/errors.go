package gateway

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/tidwall/gjson"
)

// Error is a failed gateway request. Kind is one of domain.ErrNetwork,
// domain.ErrUnauthorized, domain.ErrInvalidInput or domain.ErrServer and is
// matched by errors.Is.
type Error struct {
	Kind       error
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	// Detail is the backend's top-level message, if any.
	Detail string
	// Fields maps form fields to validation messages.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.UserMessage())
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage returns a message suitable for showing next to a form.
func (e *Error) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			msg := strings.Join(e.Fields[k], " ")
			if k == "non_field_errors" {
				parts = append(parts, msg)
				continue
			}
			parts = append(parts, k+": "+msg)
		}
		return strings.Join(parts, "; ")
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (%d %s)", e.Kind, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprint(e.Kind)
}

// FieldError returns the first validation message for field.
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func classifyStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	default:
		return domain.ErrServer
	}
}

func newStatusError(method, path string, status int, body []byte) *Error {
	e := &Error{
		Kind:       classifyStatus(status),
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
	}
	e.Detail, e.Fields = parseErrorBody(body)
	return e
}

// parseErrorBody understands the REST framework error shapes:
// {"detail": "..."}, {"error": "..."} and {"field": ["msg", ...], ...}.
func parseErrorBody(body []byte) (string, map[string][]string) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", nil
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		if res.Type == gjson.String {
			return res.String(), nil
		}
		return "", nil
	}

	var detail string
	if d := res.Get("detail"); d.Exists() {
		detail = d.String()
	} else if d := res.Get("error"); d.Exists() && d.Type == gjson.String {
		detail = d.String()
	}

	fields := make(map[string][]string)
	res.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if k == "detail" || k == "error" || k == "code" {
			return true
		}
		switch {
		case value.IsArray():
			for _, item := range value.Array() {
				if item.Type == gjson.String {
					fields[k] = append(fields[k], item.String())
				}
			}
		case value.Type == gjson.String:
			fields[k] = append(fields[k], value.String())
		}
		return true
	})
	if len(fields) == 0 {
		fields = nil
	}
	return detail, fields
}
