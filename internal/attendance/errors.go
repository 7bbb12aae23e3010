package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable is returned when the record store can not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreOperationFailed is returned when the record store rejected an operation.
	ErrStoreOperationFailed = errors.New("store operation failed")
)

type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == e.Kind
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func Unavailable(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrStoreUnavailable, Err: err}
}

func OperationFailed(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrStoreOperationFailed, Err: err}
}
