package feature

import "errors"

var ErrUnknownField = errors.New("unknown field")
