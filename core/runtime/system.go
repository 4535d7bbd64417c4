package runtime

import (
	"encoding/binary"

	"subledger/core/types"
)

// MaxAccountDataSize bounds a single allocation.
const MaxAccountDataSize = 10 * 1024 * 1024

// System program instruction tags.
const (
	SystemCreateAccount uint32 = 0
	SystemTransfer      uint32 = 2
)

type systemProgram struct{}

func (systemProgram) ID() types.Pubkey { return types.SystemProgramID }

func (systemProgram) Name() string { return "system" }

func (systemProgram) InstructionName(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch binary.LittleEndian.Uint32(data[:4]) {
	case SystemCreateAccount:
		return "createAccount"
	case SystemTransfer:
		return "transfer"
	default:
		return ""
	}
}

func (systemProgram) Process(ctx InvokeContext, accounts []AccountMeta, data []byte) error {
	if len(data) < 4 {
		return ErrInvalidInstructionData
	}
	ictx, ok := ctx.(*invokeContext)
	if !ok {
		return ErrInvalidInstructionData
	}
	switch binary.LittleEndian.Uint32(data[:4]) {
	case SystemCreateAccount:
		// lamports (8) + space (8) + owner (32); accounts: [0] funder, [1] new account
		if len(data) < 4+48 {
			return ErrInvalidInstructionData
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccountKeys
		}
		lamports := binary.LittleEndian.Uint64(data[4:12])
		space := binary.LittleEndian.Uint64(data[12:20])
		var owner types.Pubkey
		copy(owner[:], data[20:52])
		if lamports < ictx.processor.rent.MinimumBalance(space) {
			return ErrInsufficientFunds
		}
		return ictx.allocate(accounts[0].Pubkey, accounts[1].Pubkey, space, owner, lamports)
	case SystemTransfer:
		// lamports (8); accounts: [0] from, [1] to
		if len(data) < 4+8 {
			return ErrInvalidInstructionData
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccountKeys
		}
		return ictx.Transfer(accounts[0].Pubkey, accounts[1].Pubkey, binary.LittleEndian.Uint64(data[4:12]))
	default:
		return ErrInvalidInstructionData
	}
}

// NewTransferInstruction builds a system transfer of lamports.
func NewTransferInstruction(from, to types.Pubkey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[:4], SystemTransfer)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: data,
	}
}

// NewCreateAccountInstruction builds a system allocation of space bytes owned
// by owner and funded with lamports.
func NewCreateAccountInstruction(funder, account types.Pubkey, lamports, space uint64, owner types.Pubkey) Instruction {
	data := make([]byte, 4+48)
	binary.LittleEndian.PutUint32(data[:4], SystemCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:], owner[:])
	return Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: funder, IsSigner: true, IsWritable: true},
			{Pubkey: account, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}
