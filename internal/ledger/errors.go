package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger failure. Reads may be retried on Unreachable;
// submissions are never retried automatically, whatever the kind.
type Kind int

const (
	// KindRejected: the signer declined the operation.
	KindRejected Kind = iota
	// KindInsufficientFunds: the actor cannot cover the value transfer.
	KindInsufficientFunds
	// KindReverted: a business rule on the ledger side rejected the
	// operation (duplicate code, unauthorized actor, wrong value, ...).
	KindReverted
	// KindUnreachable: transport failure; the outcome of a submission
	// that hit this is unknown.
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindInsufficientFunds:
		return "insufficient funds"
	case KindReverted:
		return "reverted"
	case KindUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger: %s: %s: %s", e.Op, e.Kind, e.Message)
}

func Rejected(op, message string) *Error {
	return &Error{Kind: KindRejected, Op: op, Message: message}
}

func InsufficientFunds(op, message string) *Error {
	return &Error{Kind: KindInsufficientFunds, Op: op, Message: message}
}

func Reverted(op, message string) *Error {
	return &Error{Kind: KindReverted, Op: op, Message: message}
}

func Unreachable(op, message string) *Error {
	return &Error{Kind: KindUnreachable, Op: op, Message: message}
}

// KindOf extracts the failure kind; non-ledger errors count as Unreachable
// since nothing can be assumed about them.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnreachable
}

func IsKind(err error, kind Kind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == kind
}
