package credentials

import (
	"errors"
	"fmt"
)

// ErrNoToken reports that the store holds no usable credential. The file may
// be absent, empty, or hold something other than a JSON object.
var ErrNoToken = errors.New("no valid persisted credential")

// Authorization phases reported in AuthorizationError.Op.
const (
	OpLoad     = "load"
	OpCode     = "code"
	OpExchange = "exchange"
	OpSave     = "save"
	OpWait     = "wait"
)

// AuthorizationError is returned when a valid credential could not be
// obtained.
type AuthorizationError struct {
	Op  string
	Err error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed during %s: %v", e.Op, e.Err)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}
