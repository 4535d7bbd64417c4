package subscription

import (
	"errors"
	"fmt"
)

// Error is a program failure carrying a custom code. Codes start at 6000 so
// clients built for Anchor programs decode them unchanged.
type Error struct {
	code uint32
	name string
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("subscription: %s (%d): %s", e.name, e.code, e.msg)
}

// Code returns the numeric custom program error code.
func (e *Error) Code() uint32 { return e.code }

// Name returns the symbolic error kind.
func (e *Error) Name() string { return e.name }

// Message returns the user-facing message.
func (e *Error) Message() string { return e.msg }

var (
	ErrInvalidAmountOfSol       = &Error{code: 6000, name: "InvalidAmountOfSol", msg: "Wrong amount of SOL!"}
	ErrItemDoesNotExist         = &Error{code: 6001, name: "ItemDoesNotExist", msg: "Item does not exist in this collection!"}
	ErrKeysMismatch             = &Error{code: 6002, name: "KeysMismatch", msg: "Pay keys mismatch!"}
	ErrTooManyPlans             = &Error{code: 6003, name: "TooManyPlans", msg: "Too many subscription plans!"}
	ErrInvalidInputLength       = &Error{code: 6004, name: "InvalidInputLength", msg: "Invalid input length!"}
	ErrNameTooLong              = &Error{code: 6005, name: "NameTooLong", msg: "Name too long!"}
	ErrURLTooLong               = &Error{code: 6006, name: "UrlTooLong", msg: "URL too long!"}
	ErrInvalidURLFormat         = &Error{code: 6007, name: "InvalidUrlFormat", msg: "Invalid URL format!"}
	ErrPlanPriceTooLow          = &Error{code: 6008, name: "PlanPriceTooLow", msg: "Plan price below minimum!"}
	ErrSubscriptionLimitReached = &Error{code: 6009, name: "SubscriptionLimitReached", msg: "Subscription limit reached!"}
)

var programErrors = []*Error{
	ErrInvalidAmountOfSol,
	ErrItemDoesNotExist,
	ErrKeysMismatch,
	ErrTooManyPlans,
	ErrInvalidInputLength,
	ErrNameTooLong,
	ErrURLTooLong,
	ErrInvalidURLFormat,
	ErrPlanPriceTooLow,
	ErrSubscriptionLimitReached,
}

// ErrorFromCode maps a custom program code back to its error, or nil.
func ErrorFromCode(code uint32) *Error {
	for _, e := range programErrors {
		if e.code == code {
			return e
		}
	}
	return nil
}

// AsError extracts the program error wrapped in err.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

var (
	errNilState            = errors.New("subscription: state not configured")
	errUnknownInstruction  = errors.New("subscription: unknown instruction")
	errSystemProgramNeeded = errors.New("subscription: system program account expected")
	errMissingSigner       = errors.New("subscription: signer required")
)
