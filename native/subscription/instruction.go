package subscription

import (
	"subledger/core/runtime"
	"subledger/core/types"
)

// NewCreateCreatorAccountInstruction builds createCreatorAccount. Both account
// and signer must sign the enclosing transaction; signer funds the rent.
func NewCreateCreatorAccountInstruction(programID, account, signer, payto types.Pubkey, name string, prices []uint64, names []string, images []string) (runtime.Instruction, error) {
	data, err := encodeTagged(createCreatorAccountDiscriminator, createCreatorArgs{
		Name:   name,
		Prices: prices,
		Names:  names,
		Images: images,
	})
	if err != nil {
		return runtime.Instruction{}, err
	}
	return runtime.Instruction{
		ProgramID: programID,
		Accounts: []runtime.AccountMeta{
			{Pubkey: account, IsSigner: true, IsWritable: true},
			{Pubkey: signer, IsSigner: true, IsWritable: true},
			{Pubkey: types.SystemProgramID},
			{Pubkey: payto, IsWritable: true},
		},
		Data: data,
	}, nil
}

// NewCreateUserAccountInstruction builds createUserAccount.
func NewCreateUserAccountInstruction(programID, account, signer types.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: programID,
		Accounts: []runtime.AccountMeta{
			{Pubkey: account, IsSigner: true, IsWritable: true},
			{Pubkey: signer, IsSigner: true, IsWritable: true},
			{Pubkey: types.SystemProgramID},
		},
		Data: append([]byte(nil), createUserAccountDiscriminator[:]...),
	}
}

// NewPurchaseSubscriptionInstruction builds purchaseSubscription for the
// 1-based plan optionIndex.
func NewPurchaseSubscriptionInstruction(programID, payto, creatorAccount, userAccount, signer types.Pubkey, solAmount uint64, optionIndex uint8) (runtime.Instruction, error) {
	data, err := encodeTagged(purchaseSubscriptionDiscriminator, purchaseArgs{SolAmount: solAmount, OptionIndex: optionIndex})
	if err != nil {
		return runtime.Instruction{}, err
	}
	return runtime.Instruction{
		ProgramID: programID,
		Accounts: []runtime.AccountMeta{
			{Pubkey: payto, IsWritable: true},
			{Pubkey: creatorAccount, IsWritable: true},
			{Pubkey: userAccount, IsWritable: true},
			{Pubkey: signer, IsSigner: true, IsWritable: true},
			{Pubkey: types.SystemProgramID},
		},
		Data: data,
	}, nil
}

// NewGetSubscriptionLinkInstruction builds getSubscriptionLink for the
// 1-based subscription index.
func NewGetSubscriptionLinkInstruction(programID, userAccount types.Pubkey, index uint8) (runtime.Instruction, error) {
	data, err := encodeTagged(getSubscriptionLinkDiscriminator, linkArgs{SubscriptionIndex: index})
	if err != nil {
		return runtime.Instruction{}, err
	}
	return runtime.Instruction{
		ProgramID: programID,
		Accounts:  []runtime.AccountMeta{{Pubkey: userAccount}},
		Data:      data,
	}, nil
}

// NewLogUserSubscriptionsInstruction builds logUserSubscriptions.
func NewLogUserSubscriptionsInstruction(programID, userAccount types.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: programID,
		Accounts:  []runtime.AccountMeta{{Pubkey: userAccount}},
		Data:      append([]byte(nil), logUserSubscriptionsDiscriminator[:]...),
	}
}
