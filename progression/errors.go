package progression

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing user, achievement, ledger entry or quest.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ValidationError reports caller input the engine refuses to apply.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransactionFailedError wraps a storage failure. Nothing from the failed
// event was committed, so the caller may retry it unchanged.
type TransactionFailedError struct {
	Op  string
	Err error
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionFailedError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsTransactionFailed(err error) bool {
	var tf *TransactionFailedError
	return errors.As(err, &tf)
}

// WrapTx leaves caller errors untouched and marks everything else as a
// failed transaction.
func WrapTx(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsValidation(err) || IsTransactionFailed(err) {
		return err
	}
	return &TransactionFailedError{Op: op, Err: err}
}
