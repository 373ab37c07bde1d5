package utils

import "fmt"

// OpError records which operation failed and on what input. It unwraps to the
// underlying error so errors.Is still matches the models taxonomy.
type OpError struct {
	Op    string
	Input string
	Err   error
}

func (e *OpError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Input, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// WrapOp returns nil for a nil err, otherwise an *OpError.
func WrapOp(op, input string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Input: input, Err: err}
}
