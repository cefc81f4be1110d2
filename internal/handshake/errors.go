package handshake

import (
	"fmt"
	"strings"
)

// maxExcerptRunes bounds how much of a response body is echoed in errors.
const maxExcerptRunes = 400

// Exchange names one of the three request/response pairs.
type Exchange string

const (
	FirstPost Exchange = "First POST"
	SecondGet Exchange = "Second GET"
	FinalPost Exchange = "Final POST"
)

// TransportError reports a connection, timeout or transfer failure.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError reports a response status outside [200,300).
type HTTPStatusError struct {
	Exchange Exchange
	Status   int
	Excerpt  string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s failed with HTTP %d. Body: %s", e.Exchange, e.Status, e.Excerpt)
}

// DecodeError reports that the first response was not a JSON object.
type DecodeError struct {
	Exchange Exchange
	Excerpt  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s response is not valid JSON. Body: %s", e.Exchange, e.Excerpt)
}

// MissingFieldError reports that no alias matched.
type MissingFieldError struct {
	Field   string
	Aliases []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("cannot find %s in response (expected keys: %s)", e.Field, strings.Join(e.Aliases, "/"))
}

// EmptyValueError reports a fragment that resolved to an empty or non-string value.
type EmptyValueError struct {
	Field  string
	Source string
}

func (e *EmptyValueError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("cannot determine %s: value is empty or not a string", e.Field)
	}
	return fmt.Sprintf("cannot determine %s from the %s: value is empty or not a string", e.Field, e.Source)
}

// Failure is the terminal state of a run: the stage reached and what went wrong there.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// excerpt returns at most maxExcerptRunes of body.
func excerpt(body []byte) string {
	s := string(body)
	if len(s) <= maxExcerptRunes {
		return s
	}
	r := []rune(s)
	if len(r) <= maxExcerptRunes {
		return s
	}
	return string(r[:maxExcerptRunes])
}
