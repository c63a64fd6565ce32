package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// AuthorizationError represents a requester that is not allowed to act on a
// capsule.
type AuthorizationError struct {
	Requester string
}

func (e AuthorizationError) Error() string {
	if e.Requester == "" {
		return "not authorized"
	}
	return fmt.Sprintf("%s is not authorized", e.Requester)
}

func (e AuthorizationError) Is(target error) bool {
	_, ok := target.(AuthorizationError)
	if ok {
		return true
	}
	_, ok = target.(*AuthorizationError)
	return ok
}

var ErrNotAuthorized = AuthorizationError{}

// PreconditionError represents an operation attempted in a state that does
// not permit it, including conditions that are not yet satisfied.
type PreconditionError struct {
	Reason string
}

func (e PreconditionError) Error() string {
	if e.Reason == "" {
		return "precondition not met"
	}
	return e.Reason
}

func (e PreconditionError) Is(target error) bool {
	_, ok := target.(PreconditionError)
	if ok {
		return true
	}
	_, ok = target.(*PreconditionError)
	return ok
}

var ErrPrecondition = PreconditionError{}

// LedgerError represents a failed ledger registration or open.
type LedgerError struct {
	Op  string
	Err error
}

func (e LedgerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger %s failed", e.Op)
	}
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e LedgerError) Unwrap() error { return e.Err }

func (e LedgerError) Is(target error) bool {
	_, ok := target.(LedgerError)
	if ok {
		return true
	}
	_, ok = target.(*LedgerError)
	return ok
}

var ErrLedger = LedgerError{}

// ContentStoreError represents a failed content upload or fetch.
type ContentStoreError struct {
	Op  string
	Err error
}

func (e ContentStoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("content store %s failed", e.Op)
	}
	return fmt.Sprintf("content store %s failed: %v", e.Op, e.Err)
}

func (e ContentStoreError) Unwrap() error { return e.Err }

func (e ContentStoreError) Is(target error) bool {
	_, ok := target.(ContentStoreError)
	if ok {
		return true
	}
	_, ok = target.(*ContentStoreError)
	return ok
}

var ErrContentStore = ContentStoreError{}

// PersistenceError represents a failure of the underlying record store.
type PersistenceError struct {
	Err error
}

func (e PersistenceError) Error() string {
	if e.Err == nil {
		return "persistence failed"
	}
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

func (e PersistenceError) Is(target error) bool {
	_, ok := target.(PersistenceError)
	if ok {
		return true
	}
	_, ok = target.(*PersistenceError)
	return ok
}

var ErrPersistence = PersistenceError{}
