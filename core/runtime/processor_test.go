package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"subledger/core/events"
	"subledger/core/state"
	"subledger/core/types"
	"subledger/storage"
)

var errScripted = errors.New("scripted failure")

// scriptProgram pays accounts[1] from accounts[0], stores data[1:] in
// accounts[2], then fails when data[0] is non-zero.
type scriptProgram struct{ id types.Pubkey }

func (s scriptProgram) ID() types.Pubkey { return s.id }
func (scriptProgram) Name() string       { return "script" }

func (scriptProgram) Process(ctx InvokeContext, accounts []AccountMeta, data []byte) error {
	if err := ctx.Transfer(accounts[0].Pubkey, accounts[1].Pubkey, 100); err != nil {
		return err
	}
	if len(accounts) > 2 {
		if err := ctx.Allocate(accounts[0].Pubkey, accounts[2].Pubkey, 16); err != nil {
			return err
		}
		if err := ctx.SetData(accounts[2].Pubkey, data[1:]); err != nil {
			return err
		}
	}
	ctx.Log("paid %d", 100)
	ctx.SetReturnData([]byte("ok"))
	ctx.Emit(events.Envelope{Payload: &types.Event{Type: "script.ran"}})
	if data[0] != 0 {
		return errScripted
	}
	return nil
}

func key(b byte) types.Pubkey { return types.Pubkey{b} }

func newTestProcessor(t *testing.T) (*Processor, types.Pubkey) {
	t.Helper()
	p := NewProcessor(state.NewManager(storage.NewMemDB()))
	p.SetNowFunc(func() int64 { return 1_700_000_000 })
	programID := key(0xEE)
	p.Register(scriptProgram{id: programID})
	return p, programID
}

func scriptTx(programID, payer, dest types.Pubkey, fail bool, extra ...AccountMeta) *Transaction {
	flag := byte(0)
	if fail {
		flag = 1
	}
	metas := append([]AccountMeta{
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
	}, extra...)
	return &Transaction{
		FeePayer:     payer,
		Signers:      []types.Pubkey{payer},
		Instructions: []Instruction{{ProgramID: programID, Accounts: metas, Data: []byte{flag, 7, 7}}},
	}
}

func TestExecuteCommitsTransferAndData(t *testing.T) {
	ctx := context.Background()
	p, programID := newTestProcessor(t)
	payer, dest, storeKey := key(1), key(2), key(3)
	_, err := p.Airdrop(ctx, payer, 1_000_000_000)
	require.NoError(t, err)

	tx := scriptTx(programID, payer, dest, false, AccountMeta{Pubkey: storeKey, IsSigner: true, IsWritable: true})
	tx.Signers = append(tx.Signers, storeKey)
	receipt, err := p.Execute(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), receipt.Slot)
	require.Equal(t, []byte("ok"), receipt.ReturnData)
	require.Contains(t, receipt.Logs, "Program log: paid 100")
	require.Len(t, receipt.Events, 1)
	require.NotEmpty(t, receipt.Signature)

	balance, err := p.Balance(ctx, dest)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance)

	stored, err := p.Account(storeKey)
	require.NoError(t, err)
	require.Equal(t, programID, stored.Owner)
	require.Equal(t, uint64(16), stored.Space)
	require.Equal(t, []byte{7, 7}, stored.Data)
	require.Equal(t, p.Rent().MinimumBalance(16), stored.Lamports)

	payerBalance, err := p.Balance(ctx, payer)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000)-100-p.Rent().MinimumBalance(16), payerBalance)
}

func TestExecuteFailureDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	p, programID := newTestProcessor(t)
	payer, dest := key(1), key(2)
	_, err := p.Airdrop(ctx, payer, 1_000)
	require.NoError(t, err)

	receipt, err := p.Execute(ctx, scriptTx(programID, payer, dest, true))
	require.ErrorIs(t, err, errScripted)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, 0, txErr.Instruction)
	require.NotNil(t, receipt)
	require.Contains(t, receipt.Logs, "Program log: paid 100")

	balance, err := p.Balance(ctx, payer)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), balance)
	balance, err = p.Balance(ctx, dest)
	require.NoError(t, err)
	require.Zero(t, balance)

	slot, err := p.state.Slot()
	require.NoError(t, err)
	require.Equal(t, uint64(1), slot, "rejected transactions must not advance the slot")
}

func TestExecuteRejectsUnsignedSigner(t *testing.T) {
	ctx := context.Background()
	p, programID := newTestProcessor(t)
	payer, dest := key(1), key(2)
	_, err := p.Airdrop(ctx, payer, 1_000)
	require.NoError(t, err)

	tx := scriptTx(programID, payer, dest, false)
	tx.Signers = nil
	_, err = p.Execute(ctx, tx)
	require.ErrorIs(t, err, ErrMissingRequiredSignature)

	tx = scriptTx(programID, payer, dest, false, AccountMeta{Pubkey: key(9), IsSigner: true})
	_, err = p.Execute(ctx, tx)
	require.ErrorIs(t, err, ErrMissingRequiredSignature)
}

func TestExecuteRejectsUnknownProgramAndEmptyTx(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t)
	payer := key(1)

	_, err := p.Execute(ctx, &Transaction{FeePayer: payer, Signers: []types.Pubkey{payer}})
	require.ErrorIs(t, err, ErrEmptyTransaction)

	_, err = p.Execute(ctx, &Transaction{
		FeePayer:     payer,
		Signers:      []types.Pubkey{payer},
		Instructions: []Instruction{{ProgramID: key(0x42)}},
	})
	require.ErrorIs(t, err, ErrUnknownProgram)
}

func TestInsufficientFundsAbortsTransfer(t *testing.T) {
	ctx := context.Background()
	p, programID := newTestProcessor(t)
	payer, dest := key(1), key(2)
	_, err := p.Airdrop(ctx, payer, 99)
	require.NoError(t, err)

	_, err = p.Execute(ctx, scriptTx(programID, payer, dest, false))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSimulateDiscardsEffects(t *testing.T) {
	ctx := context.Background()
	p, programID := newTestProcessor(t)
	payer, dest := key(1), key(2)
	_, err := p.Airdrop(ctx, payer, 1_000)
	require.NoError(t, err)

	receipt, err := p.Simulate(ctx, scriptTx(programID, payer, dest, false))
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), receipt.ReturnData)
	require.Equal(t, uint64(1), receipt.Slot)

	balance, err := p.Balance(ctx, dest)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestSystemTransferAndCreateAccount(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t)
	from, to, fresh := key(1), key(2), key(3)
	owner := key(0x77)
	_, err := p.Airdrop(ctx, from, 10_000_000)
	require.NoError(t, err)

	rentMin := p.Rent().MinimumBalance(64)
	_, err = p.Execute(ctx, &Transaction{
		FeePayer: from,
		Signers:  []types.Pubkey{from, fresh},
		Instructions: []Instruction{
			NewTransferInstruction(from, to, 2_500),
			NewCreateAccountInstruction(from, fresh, rentMin, 64, owner),
		},
	})
	require.NoError(t, err)

	balance, err := p.Balance(ctx, to)
	require.NoError(t, err)
	require.Equal(t, uint64(2_500), balance)

	acc, err := p.Account(fresh)
	require.NoError(t, err)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, uint64(64), acc.Space)
	require.Equal(t, rentMin, acc.Lamports)

	_, err = p.Execute(ctx, &Transaction{
		FeePayer:     from,
		Signers:      []types.Pubkey{from, fresh},
		Instructions: []Instruction{NewCreateAccountInstruction(from, fresh, rentMin, 64, owner)},
	})
	require.ErrorIs(t, err, ErrAccountAlreadyInUse)

	_, err = p.Execute(ctx, &Transaction{
		FeePayer:     from,
		Signers:      []types.Pubkey{from, key(4)},
		Instructions: []Instruction{NewCreateAccountInstruction(from, key(4), rentMin-1, 64, owner)},
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRentMinimumBalance(t *testing.T) {
	rent := DefaultRent()
	require.Equal(t, uint64((128+100)*3480*2), rent.MinimumBalance(100))
	require.Equal(t, uint64(0), Rent{}.MinimumBalance(1_000))
	require.Equal(t, ^uint64(0), Rent{LamportsPerByteYear: ^uint64(0), ExemptionYears: 2}.MinimumBalance(1))
}

func TestAddLamportsOverflow(t *testing.T) {
	_, ok := addLamports(^uint64(0), 1)
	require.False(t, ok)
	sum, ok := addLamports(2, 3)
	require.True(t, ok)
	require.Equal(t, uint64(5), sum)
}
