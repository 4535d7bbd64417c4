package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInstructionData   = errors.New("runtime: invalid instruction data")
	ErrInsufficientFunds        = errors.New("runtime: insufficient funds")
	ErrAccountAlreadyInUse      = errors.New("runtime: account already in use")
	ErrNotEnoughAccountKeys     = errors.New("runtime: not enough account keys")
	ErrAccountNotProvided       = errors.New("runtime: account not passed to instruction")
	ErrInvalidAccountOwner      = errors.New("runtime: invalid account owner")
	ErrMissingRequiredSignature = errors.New("runtime: missing required signature")
	ErrAccountNotWritable       = errors.New("runtime: account not writable")
	ErrAccountDataTooSmall      = errors.New("runtime: account data too small")
	ErrAccountDataTooLarge      = errors.New("runtime: account data too large")
	ErrLamportOverflow          = errors.New("runtime: lamport arithmetic overflow")
	ErrUnknownProgram           = errors.New("runtime: unknown program")
	ErrEmptyTransaction         = errors.New("runtime: transaction has no instructions")
)

// CodedError is implemented by program errors that carry a numeric custom code.
type CodedError interface {
	error
	Code() uint32
}

// ErrorCode extracts the custom program code from err, or zero.
func ErrorCode(err error) uint32 {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return 0
}

// TransactionError reports which instruction aborted a transaction.
type TransactionError struct {
	Instruction int
	Program     string
	Err         error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("runtime: instruction %d (%s) failed: %v", e.Instruction, e.Program, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
