package runtime

import (
	"fmt"

	"subledger/core/events"
	"subledger/core/state"
	"subledger/core/types"
)

// InvokeContext is the view of the ledger handed to a program while one of its
// instructions executes. Every mutation is staged in the transaction overlay
// and only becomes visible once the whole transaction commits.
type InvokeContext interface {
	// ProgramID is the address of the executing program.
	ProgramID() types.Pubkey
	// Account returns a copy of an account passed to the instruction.
	Account(key types.Pubkey) (*types.Account, error)
	IsSigner(key types.Pubkey) bool
	IsWritable(key types.Pubkey) bool
	// Allocate reserves space bytes at key for the executing program, funding
	// the rent-exempt minimum from payer. Both keys must have signed.
	Allocate(payer, key types.Pubkey, space uint64) error
	// SetData replaces the data of an account owned by the executing program.
	SetData(key types.Pubkey, data []byte) error
	// Transfer moves lamports from a signing, system-owned account.
	Transfer(from, to types.Pubkey, lamports uint64) error
	// Now is the unix timestamp of the slot being produced.
	Now() int64
	Log(format string, args ...any)
	SetReturnData(data []byte)
	Emit(evt events.Event)
}

type invokeContext struct {
	processor  *Processor
	overlay    *state.Overlay
	program    types.Pubkey
	name       string
	metas      map[types.Pubkey]AccountMeta
	signers    map[types.Pubkey]struct{}
	now        int64
	logs       *[]string
	returnData *[]byte
	recorder   *events.Recorder
	moved      uint64
}

func (c *invokeContext) ProgramID() types.Pubkey { return c.program }

func (c *invokeContext) Account(key types.Pubkey) (*types.Account, error) {
	if _, ok := c.metas[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotProvided, key)
	}
	return c.overlay.Account(key)
}

func (c *invokeContext) IsSigner(key types.Pubkey) bool {
	meta, ok := c.metas[key]
	if !ok || !meta.IsSigner {
		return false
	}
	_, signed := c.signers[key]
	return signed
}

func (c *invokeContext) IsWritable(key types.Pubkey) bool {
	meta, ok := c.metas[key]
	return ok && meta.IsWritable
}

func (c *invokeContext) requireWritable(key types.Pubkey) error {
	if _, ok := c.metas[key]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotProvided, key)
	}
	if !c.IsWritable(key) {
		return fmt.Errorf("%w: %s", ErrAccountNotWritable, key)
	}
	return nil
}

func (c *invokeContext) requireSigner(key types.Pubkey) error {
	if !c.IsSigner(key) {
		return fmt.Errorf("%w: %s", ErrMissingRequiredSignature, key)
	}
	return nil
}

func (c *invokeContext) Allocate(payer, key types.Pubkey, space uint64) error {
	return c.allocate(payer, key, space, c.program, c.processor.rent.MinimumBalance(space))
}

func (c *invokeContext) allocate(payer, key types.Pubkey, space uint64, owner types.Pubkey, lamports uint64) error {
	if space > MaxAccountDataSize {
		return ErrAccountDataTooLarge
	}
	for _, k := range []types.Pubkey{payer, key} {
		if err := c.requireSigner(k); err != nil {
			return err
		}
		if err := c.requireWritable(k); err != nil {
			return err
		}
	}
	target, err := c.overlay.Account(key)
	if err != nil {
		return err
	}
	if !target.IsUninitialized() {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, key)
	}
	if err := c.move(payer, key, lamports); err != nil {
		return err
	}
	target, err = c.overlay.Account(key)
	if err != nil {
		return err
	}
	target.Owner = owner
	target.Space = space
	target.Data = nil
	return c.overlay.PutAccount(key, target)
}

func (c *invokeContext) SetData(key types.Pubkey, data []byte) error {
	if err := c.requireWritable(key); err != nil {
		return err
	}
	acc, err := c.overlay.Account(key)
	if err != nil {
		return err
	}
	if acc.Owner != c.program {
		return fmt.Errorf("%w: %s owned by %s", ErrInvalidAccountOwner, key, acc.Owner)
	}
	if uint64(len(data)) > acc.Space {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrAccountDataTooSmall, len(data), acc.Space)
	}
	acc.Data = append([]byte(nil), data...)
	return c.overlay.PutAccount(key, acc)
}

func (c *invokeContext) Transfer(from, to types.Pubkey, lamports uint64) error {
	if err := c.requireSigner(from); err != nil {
		return err
	}
	if err := c.requireWritable(from); err != nil {
		return err
	}
	if err := c.requireWritable(to); err != nil {
		return err
	}
	return c.move(from, to, lamports)
}

// move debits from and credits to. from must be owned by the system program.
func (c *invokeContext) move(from, to types.Pubkey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	source, err := c.overlay.Account(from)
	if err != nil {
		return err
	}
	if source.Owner != types.SystemProgramID {
		return fmt.Errorf("%w: transfer source %s owned by %s", ErrInvalidAccountOwner, from, source.Owner)
	}
	if source.Lamports < lamports {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, source.Lamports, lamports)
	}
	source.Lamports -= lamports
	if err := c.overlay.PutAccount(from, source); err != nil {
		return err
	}
	dest, err := c.overlay.Account(to)
	if err != nil {
		return err
	}
	sum, ok := addLamports(dest.Lamports, lamports)
	if !ok {
		return ErrLamportOverflow
	}
	dest.Lamports = sum
	if err := c.overlay.PutAccount(to, dest); err != nil {
		return err
	}
	c.moved += lamports
	return nil
}

func (c *invokeContext) Now() int64 { return c.now }

func (c *invokeContext) Log(format string, args ...any) {
	*c.logs = append(*c.logs, "Program log: "+fmt.Sprintf(format, args...))
}

func (c *invokeContext) SetReturnData(data []byte) {
	*c.returnData = append([]byte(nil), data...)
}

func (c *invokeContext) Emit(evt events.Event) {
	c.recorder.Emit(evt)
}
