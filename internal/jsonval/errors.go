package jsonval

import "errors"

// ErrParse reports a malformed document. Parsing halts at the first
// violation; no partial value is ever returned alongside this error.
var ErrParse = errors.New("jsonval: parse error")
