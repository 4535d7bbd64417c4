package subscription

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"subledger/core/runtime"
	"subledger/core/state"
	"subledger/core/types"
	"subledger/storage"
)

type ledgerFixture struct {
	t         *testing.T
	ctx       context.Context
	processor *runtime.Processor
}

func newLedgerFixture(t *testing.T, db storage.Database) *ledgerFixture {
	t.Helper()
	processor := runtime.NewProcessor(state.NewManager(db))
	processor.SetNowFunc(func() int64 { return testNow })
	processor.Register(NewProgram())
	return &ledgerFixture{t: t, ctx: context.Background(), processor: processor}
}

func (f *ledgerFixture) balance(key types.Pubkey) uint64 {
	f.t.Helper()
	balance, err := f.processor.Balance(f.ctx, key)
	require.NoError(f.t, err)
	return balance
}

func (f *ledgerFixture) send(payer types.Pubkey, signers []types.Pubkey, ixs ...runtime.Instruction) (*runtime.Receipt, error) {
	return f.processor.Execute(f.ctx, &runtime.Transaction{
		FeePayer:     payer,
		Signers:      append([]types.Pubkey{payer}, signers...),
		Instructions: ixs,
	})
}

func (f *ledgerFixture) seed() {
	f.t.Helper()
	for _, wallet := range []types.Pubkey{creatorWallet, userWallet} {
		_, err := f.processor.Airdrop(f.ctx, wallet, 2_000_000_000)
		require.NoError(f.t, err)
	}
	ix, err := NewCreateCreatorAccountInstruction(ProgramID, creatorAccount, creatorWallet, paytoWallet, "Creator",
		[]uint64{1000, 100000, 10000000},
		[]string{"Mini", "Midi", "Maxi"},
		[]string{"https://x/1", "https://x/2", "https://x/3"})
	require.NoError(f.t, err)
	receipt, err := f.send(creatorWallet, []types.Pubkey{creatorAccount}, ix)
	require.NoError(f.t, err)
	require.Contains(f.t, receipt.Logs, "Program log: Instruction: createCreatorAccount")
	require.Contains(f.t, receipt.Logs, "Program log: Successfully initialized!")

	_, err = f.send(userWallet, []types.Pubkey{userAccount}, NewCreateUserAccountInstruction(ProgramID, userAccount, userWallet))
	require.NoError(f.t, err)
}

func (f *ledgerFixture) purchase(amount uint64, option uint8) (*runtime.Receipt, error) {
	ix, err := NewPurchaseSubscriptionInstruction(ProgramID, paytoWallet, creatorAccount, userAccount, userWallet, amount, option)
	require.NoError(f.t, err)
	return f.send(userWallet, nil, ix)
}

func (f *ledgerFixture) link(index uint8) (string, error) {
	ix, err := NewGetSubscriptionLinkInstruction(ProgramID, userAccount, index)
	require.NoError(f.t, err)
	receipt, err := f.processor.Simulate(f.ctx, &runtime.Transaction{
		FeePayer:     userWallet,
		Signers:      []types.Pubkey{userWallet},
		Instructions: []runtime.Instruction{ix},
	})
	if err != nil {
		return "", err
	}
	return string(receipt.ReturnData), nil
}

func (f *ledgerFixture) user() *UserAccount {
	f.t.Helper()
	acc, err := f.processor.Account(userAccount)
	require.NoError(f.t, err)
	record, err := DecodeUserAccount(acc.Data)
	require.NoError(f.t, err)
	return record
}

func TestMarketplaceScenario(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()

	creatorRent := f.processor.Rent().MinimumBalance(CreatorAccountSpace)
	require.Equal(t, creatorRent, f.balance(creatorAccount))
	require.Equal(t, uint64(2_000_000_000)-creatorRent, f.balance(creatorWallet))

	_, err := f.purchase(10000000, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(10000000), f.balance(paytoWallet))
	require.Len(t, f.user().Subscriptions, 1)

	receipt, err := f.purchase(100000, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(10100000), f.balance(paytoWallet))
	require.Len(t, f.user().Subscriptions, 2)
	require.Contains(t, receipt.Logs, "Program log: Successfully added subscription level 2 to the account!")
	require.Contains(t, receipt.Logs, "Program log: Subscription endtime: 30 days left")
	require.Len(t, receipt.Events, 1)
	require.Equal(t, EventTypeSubscriptionPurchased, receipt.Events[0].Type)

	link, err := f.link(1)
	require.NoError(t, err)
	require.Equal(t, "https://x/3", link)
	link, err = f.link(2)
	require.NoError(t, err)
	require.Equal(t, "https://x/2", link)
	_, err = f.link(3)
	require.ErrorIs(t, err, ErrItemDoesNotExist)
	require.Equal(t, uint32(6001), runtime.ErrorCode(err))
}

func TestFailedPurchaseRollsBack(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()
	payerBefore := f.balance(userWallet)

	receipt, err := f.purchase(10000001, 3)
	require.ErrorIs(t, err, ErrInvalidAmountOfSol)
	require.Equal(t, uint32(6000), runtime.ErrorCode(err))
	require.NotNil(t, receipt)
	require.Empty(t, receipt.Events)

	require.Equal(t, payerBefore, f.balance(userWallet))
	require.Zero(t, f.balance(paytoWallet))
	require.Empty(t, f.user().Subscriptions)

	// a valid purchase followed by a failing one in the same transaction
	good, err := NewPurchaseSubscriptionInstruction(ProgramID, paytoWallet, creatorAccount, userAccount, userWallet, 1000, 1)
	require.NoError(t, err)
	bad, err := NewPurchaseSubscriptionInstruction(ProgramID, creatorWallet, creatorAccount, userAccount, userWallet, 1000, 1)
	require.NoError(t, err)
	_, err = f.send(userWallet, nil, good, bad)
	require.ErrorIs(t, err, ErrKeysMismatch)
	var txErr *runtime.TransactionError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, 1, txErr.Instruction)

	require.Equal(t, payerBefore, f.balance(userWallet))
	require.Zero(t, f.balance(paytoWallet))
	require.Empty(t, f.user().Subscriptions)
}

func TestPurchaseRollsBackTransferWhenRecordFails(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()
	payerBefore := f.balance(userWallet)

	ix, err := NewPurchaseSubscriptionInstruction(ProgramID, paytoWallet, creatorAccount, userAccount, userWallet, 1000, 1)
	require.NoError(t, err)
	// the payment goes through, then the user record cannot be written
	ix.Accounts[2].IsWritable = false
	receipt, err := f.send(userWallet, nil, ix)
	require.ErrorIs(t, err, runtime.ErrAccountNotWritable)
	require.NotNil(t, receipt)
	require.Empty(t, receipt.Events)

	require.Equal(t, payerBefore, f.balance(userWallet))
	require.Zero(t, f.balance(paytoWallet))
	require.Empty(t, f.user().Subscriptions)
}

func TestOversizedCreatorArgumentsRejected(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()

	ix, err := NewCreateCreatorAccountInstruction(ProgramID, types.Pubkey{0x44}, creatorWallet, paytoWallet, "Other",
		[]uint64{1000}, []string{"Mini"}, []string{"https://x/1"})
	require.NoError(t, err)
	// name length claims a gigabyte the payload does not carry
	ix.Data = append(ix.Data[:discriminatorSize], 0, 0, 0, 0x40)
	_, err = f.send(creatorWallet, []types.Pubkey{{0x44}}, ix)
	require.ErrorIs(t, err, runtime.ErrInvalidInstructionData)

	acc, err := f.processor.Account(types.Pubkey{0x44})
	require.NoError(t, err)
	require.True(t, acc.IsUninitialized())
}

func TestPurchaseRequiresSigner(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()

	ix, err := NewPurchaseSubscriptionInstruction(ProgramID, paytoWallet, creatorAccount, userAccount, userWallet, 1000, 1)
	require.NoError(t, err)
	// someone else pays the fee but the buyer never signed
	_, err = f.send(creatorWallet, nil, ix)
	require.ErrorIs(t, err, runtime.ErrMissingRequiredSignature)

	ix.Accounts[3].IsSigner = false
	_, err = f.send(creatorWallet, nil, ix)
	require.ErrorIs(t, err, errMissingSigner)
	require.Zero(t, f.balance(paytoWallet))
}

func TestCreateAccountsRequireFreshSignedAddress(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()

	_, err := f.send(userWallet, []types.Pubkey{userAccount}, NewCreateUserAccountInstruction(ProgramID, userAccount, userWallet))
	require.ErrorIs(t, err, runtime.ErrAccountAlreadyInUse)

	fresh := types.Pubkey{0x55}
	_, err = f.send(userWallet, nil, NewCreateUserAccountInstruction(ProgramID, fresh, userWallet))
	require.ErrorIs(t, err, runtime.ErrMissingRequiredSignature)

	ix := NewCreateUserAccountInstruction(ProgramID, fresh, userWallet)
	ix.Accounts[2].Pubkey = types.Pubkey{0x01}
	_, err = f.send(userWallet, []types.Pubkey{fresh}, ix)
	require.ErrorIs(t, err, errSystemProgramNeeded)

	broke := types.Pubkey{0x66}
	_, err = f.send(broke, []types.Pubkey{fresh}, NewCreateUserAccountInstruction(ProgramID, fresh, broke))
	require.ErrorIs(t, err, runtime.ErrInsufficientFunds)
}

func TestCreateCreatorAccountValidationAbortsTransaction(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	_, err := f.processor.Airdrop(f.ctx, creatorWallet, 1_000_000_000)
	require.NoError(t, err)

	ix, err := NewCreateCreatorAccountInstruction(ProgramID, creatorAccount, creatorWallet, paytoWallet, "Creator",
		[]uint64{1000}, []string{"Mini"}, []string{"ftp:/missing-host"})
	require.NoError(t, err)
	_, err = f.send(creatorWallet, []types.Pubkey{creatorAccount}, ix)
	require.ErrorIs(t, err, ErrInvalidURLFormat)
	require.Equal(t, uint64(1_000_000_000), f.balance(creatorWallet))
	acc, err := f.processor.Account(creatorAccount)
	require.NoError(t, err)
	require.True(t, acc.IsUninitialized())
}

func TestLogUserSubscriptions(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()
	_, err := f.purchase(1000, 1)
	require.NoError(t, err)

	receipt, err := f.processor.Simulate(f.ctx, &runtime.Transaction{
		FeePayer:     userWallet,
		Signers:      []types.Pubkey{userWallet},
		Instructions: []runtime.Instruction{NewLogUserSubscriptionsInstruction(ProgramID, userAccount)},
	})
	require.NoError(t, err)
	require.Contains(t, receipt.Logs, fmt.Sprintf("Program log: User: %s", userWallet))
	require.Contains(t, receipt.Logs, fmt.Sprintf("Program log: Subscription 1. Mini(%s): days left 30", creatorAccount))

	views, err := DecodeSubscriptionList(receipt.ReturnData)
	require.NoError(t, err)
	require.Equal(t, []SubscriptionView{{Creator: creatorAccount, Name: "Mini", EndTime: testNow + SubscriptionDuration, DaysLeft: 30}}, views)
}

func TestUnknownInstructionRejected(t *testing.T) {
	f := newLedgerFixture(t, storage.NewMemDB())
	f.seed()
	_, err := f.send(userWallet, nil, runtime.Instruction{ProgramID: ProgramID, Data: []byte("garbage!")})
	require.ErrorIs(t, err, errUnknownInstruction)
	_, err = f.send(userWallet, nil, runtime.Instruction{ProgramID: ProgramID, Data: []byte{1}})
	require.ErrorIs(t, err, runtime.ErrInvalidInstructionData)
}

func TestMarketplaceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	f := newLedgerFixture(t, db)
	f.seed()
	_, err = f.purchase(100000, 2)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db.Close()
	f = newLedgerFixture(t, db)
	require.Equal(t, uint64(100000), f.balance(paytoWallet))
	link, err := f.link(1)
	require.NoError(t, err)
	require.Equal(t, "https://x/2", link)

	_, err = f.purchase(1000, 1)
	require.NoError(t, err)
	require.Len(t, f.user().Subscriptions, 2)
}
