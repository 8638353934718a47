package email

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every error that reports an incomplete or
// malformed message.
var ErrValidation = errors.New("invalid message")

var (
	ErrNoBody       = fmt.Errorf("%w: must specify at least one body type (HTML or text)", ErrValidation)
	ErrNoRecipients = fmt.Errorf("%w: must specify at least one recipient", ErrValidation)
	ErrNoSender     = fmt.Errorf("%w: must specify a sender", ErrValidation)
)

// InvalidAddressError is returned by the address setters when an address
// fails ValidateAddress.
type InvalidAddressError struct {
	// Field is the header the address was meant for: From, To, Cc or Bcc.
	Field   string
	Address string
}

func (e *InvalidAddressError) Error() string {
	switch e.Field {
	case "Cc", "Bcc":
		return fmt.Sprintf("invalid %s email address %q", e.Field, e.Address)
	default:
		return fmt.Sprintf("invalid email address %q", e.Address)
	}
}

// Is lets errors.Is(err, ErrValidation) match address errors.
func (e *InvalidAddressError) Is(target error) bool {
	return target == ErrValidation
}
