package runtime

import (
	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"subledger/core/types"
)

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction invokes one program with an ordered list of accounts.
type Instruction struct {
	ProgramID types.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction groups instructions that commit or fail together.
//
// Signers lists the keys that authorised the transaction. Signature
// verification happens before submission; the runtime only checks that every
// meta flagged IsSigner is present in the set.
type Transaction struct {
	FeePayer     types.Pubkey
	Instructions []Instruction
	Signers      []types.Pubkey
}

// Receipt is the result of executing a transaction.
type Receipt struct {
	Signature  string
	Slot       uint64
	Logs       []string
	ReturnData []byte
	Events     []types.Event
}

func (tx *Transaction) signerSet() map[types.Pubkey]struct{} {
	set := make(map[types.Pubkey]struct{}, len(tx.Signers)+1)
	for _, key := range tx.Signers {
		set[key] = struct{}{}
	}
	return set
}

// digest derives the receipt signature. The slot makes identical
// transactions submitted twice distinguishable.
func (tx *Transaction) digest(slot uint64) ([32]byte, error) {
	encoded, err := rlp.EncodeToBytes(struct {
		Tx   *Transaction
		Slot uint64
	}{tx, slot})
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(encoded), nil
}
