package subscription

import (
	"fmt"

	"subledger/core/runtime"
	"subledger/core/types"
)

// Program dispatches subscription instructions to the engine.
type Program struct {
	id types.Pubkey
}

// NewProgram returns the program deployed at ProgramID.
func NewProgram() *Program { return &Program{id: ProgramID} }

// NewProgramAt returns the program deployed at id. Tests and local ledgers use
// it to run several copies side by side.
func NewProgramAt(id types.Pubkey) *Program { return &Program{id: id} }

func (p *Program) ID() types.Pubkey { return p.id }

func (p *Program) Name() string { return "subscription" }

// InstructionName implements runtime.InstructionNamer.
func (p *Program) InstructionName(data []byte) string {
	if len(data) < discriminatorSize {
		return ""
	}
	var tag discriminator
	copy(tag[:], data)
	switch tag {
	case createCreatorAccountDiscriminator:
		return "createCreatorAccount"
	case createUserAccountDiscriminator:
		return "createUserAccount"
	case purchaseSubscriptionDiscriminator:
		return "purchaseSubscription"
	case getSubscriptionLinkDiscriminator:
		return "getSubscriptionLink"
	case logUserSubscriptionsDiscriminator:
		return "logUserSubscriptions"
	default:
		return ""
	}
}

func (p *Program) engine(ctx runtime.InvokeContext) *Engine {
	engine := NewEngine()
	engine.SetState(ctx)
	engine.SetEmitter(ctx)
	engine.SetNowFunc(ctx.Now)
	return engine
}

func (p *Program) Process(ctx runtime.InvokeContext, accounts []runtime.AccountMeta, data []byte) error {
	if len(data) < discriminatorSize {
		return runtime.ErrInvalidInstructionData
	}
	var tag discriminator
	copy(tag[:], data)
	switch tag {
	case createCreatorAccountDiscriminator:
		return p.createCreatorAccount(ctx, accounts, data)
	case createUserAccountDiscriminator:
		return p.createUserAccount(ctx, accounts)
	case purchaseSubscriptionDiscriminator:
		return p.purchaseSubscription(ctx, accounts, data)
	case getSubscriptionLinkDiscriminator:
		return p.getSubscriptionLink(ctx, accounts, data)
	case logUserSubscriptionsDiscriminator:
		return p.logUserSubscriptions(ctx, accounts)
	default:
		return fmt.Errorf("%w: %x", errUnknownInstruction, data[:discriminatorSize])
	}
}

func requireAccounts(accounts []runtime.AccountMeta, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: need %d, got %d", runtime.ErrNotEnoughAccountKeys, n, len(accounts))
	}
	return nil
}

func requireSystemProgram(meta runtime.AccountMeta) error {
	if meta.Pubkey != types.SystemProgramID {
		return fmt.Errorf("%w: got %s", errSystemProgramNeeded, meta.Pubkey)
	}
	return nil
}

func requireSigner(ctx runtime.InvokeContext, key types.Pubkey) error {
	if !ctx.IsSigner(key) {
		return fmt.Errorf("%w: %s", errMissingSigner, key)
	}
	return nil
}

func decodeArgs(tag discriminator, data []byte, v any) error {
	if err := decodeTagged(tag, data, v); err != nil {
		return fmt.Errorf("%w: %v", runtime.ErrInvalidInstructionData, err)
	}
	return nil
}

// accounts: creatorAccount (w,s), signer (w,s), systemProgram, paytoAccount (w)
func (p *Program) createCreatorAccount(ctx runtime.InvokeContext, accounts []runtime.AccountMeta, data []byte) error {
	if err := requireAccounts(accounts, 4); err != nil {
		return err
	}
	if err := requireSystemProgram(accounts[2]); err != nil {
		return err
	}
	args, err := decodeCreatorArgs(data)
	if err != nil {
		return fmt.Errorf("%w: %v", runtime.ErrInvalidInstructionData, err)
	}
	account, signer, payto := accounts[0].Pubkey, accounts[1].Pubkey, accounts[3].Pubkey
	record, err := p.engine(ctx).CreateCreatorAccount(account, signer, payto, args.Name, args.Prices, args.Names, args.Images)
	if err != nil {
		return err
	}
	names := make([]string, len(record.Plans))
	prices := make([]uint64, len(record.Plans))
	for i, plan := range record.Plans {
		names[i] = plan.Name
		prices[i] = plan.Price
	}
	ctx.Log("Successfully initialized!")
	ctx.Log("Creator: %s", record.Creator)
	ctx.Log("Creator Account: %s", account)
	ctx.Log("Topic: %s", record.Name)
	ctx.Log("Subscription plans names: %q", names)
	ctx.Log("Subscription plans prices: %v", prices)
	return nil
}

// accounts: userAccount (w,s), signer (w,s), systemProgram
func (p *Program) createUserAccount(ctx runtime.InvokeContext, accounts []runtime.AccountMeta) error {
	if err := requireAccounts(accounts, 3); err != nil {
		return err
	}
	if err := requireSystemProgram(accounts[2]); err != nil {
		return err
	}
	account, signer := accounts[0].Pubkey, accounts[1].Pubkey
	if _, err := p.engine(ctx).CreateUserAccount(account, signer); err != nil {
		return err
	}
	ctx.Log("User account %s created for %s", account, signer)
	return nil
}

// accounts: paytoAccount (w), creatorAccount (w), userAccount (w), signer (s), systemProgram
func (p *Program) purchaseSubscription(ctx runtime.InvokeContext, accounts []runtime.AccountMeta, data []byte) error {
	if err := requireAccounts(accounts, 5); err != nil {
		return err
	}
	if err := requireSystemProgram(accounts[4]); err != nil {
		return err
	}
	var args purchaseArgs
	if err := decodeArgs(purchaseSubscriptionDiscriminator, data, &args); err != nil {
		return err
	}
	payto, creator, user, signer := accounts[0].Pubkey, accounts[1].Pubkey, accounts[2].Pubkey, accounts[3].Pubkey
	if err := requireSigner(ctx, signer); err != nil {
		return err
	}
	engine := p.engine(ctx)
	receipt, err := engine.Purchase(payto, creator, user, signer, args.SolAmount, args.OptionIndex)
	if err != nil {
		return err
	}
	ctx.Log("Successfully added subscription level %d to the account!", args.OptionIndex)
	ctx.Log("Subscription endtime: %d days left", (receipt.Subscription.EndTime-engine.now())/SecondsPerDay)
	return nil
}

// accounts: userAccount
func (p *Program) getSubscriptionLink(ctx runtime.InvokeContext, accounts []runtime.AccountMeta, data []byte) error {
	if err := requireAccounts(accounts, 1); err != nil {
		return err
	}
	var args linkArgs
	if err := decodeArgs(getSubscriptionLinkDiscriminator, data, &args); err != nil {
		return err
	}
	link, err := p.engine(ctx).GetLink(accounts[0].Pubkey, args.SubscriptionIndex)
	if err != nil {
		return err
	}
	ctx.Log("Subscription link: %s", link)
	ctx.SetReturnData([]byte(link))
	return nil
}

// accounts: userAccount
func (p *Program) logUserSubscriptions(ctx runtime.InvokeContext, accounts []runtime.AccountMeta) error {
	if err := requireAccounts(accounts, 1); err != nil {
		return err
	}
	user, views, err := p.engine(ctx).UserSubscriptions(accounts[0].Pubkey)
	if err != nil {
		return err
	}
	ctx.Log("User: %s", user.Owner)
	for i, view := range views {
		ctx.Log("Subscription %d. %s(%s): days left %d", i+1, view.Name, view.Creator, view.DaysLeft)
	}
	encoded, err := EncodeSubscriptionList(views)
	if err != nil {
		return fmt.Errorf("subscription: encode subscription list: %w", err)
	}
	ctx.SetReturnData(encoded)
	return nil
}
