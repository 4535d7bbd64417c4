package subscription

import (
	"fmt"

	"subledger/core/types"
)

// CreateCreatorAccount validates the catalog, allocates account funded by
// creator and stores the record. Image URLs are stored in plain form.
func (e *Engine) CreateCreatorAccount(account, creator, payto types.Pubkey, name string, prices []uint64, names []string, imageURLs []string) (*CreatorAccount, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	plans, err := buildPlans(name, prices, names, imageURLs)
	if err != nil {
		return nil, err
	}
	record := &CreatorAccount{Creator: creator, Payto: payto, Name: name, Plans: plans}
	data, err := EncodeCreatorAccount(record)
	if err != nil {
		return nil, fmt.Errorf("subscription: encode creator account: %w", err)
	}
	if err := e.state.Allocate(creator, account, CreatorAccountSpace); err != nil {
		return nil, err
	}
	if err := e.state.SetData(account, data); err != nil {
		return nil, err
	}
	e.emit(CreatorAccountCreatedEvent(account, record))
	return record, nil
}

// CreateUserAccount allocates an empty user account funded by owner.
func (e *Engine) CreateUserAccount(account, owner types.Pubkey) (*UserAccount, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record := &UserAccount{Owner: owner}
	data, err := EncodeUserAccount(record)
	if err != nil {
		return nil, fmt.Errorf("subscription: encode user account: %w", err)
	}
	if err := e.state.Allocate(owner, account, UserAccountSpace); err != nil {
		return nil, err
	}
	if err := e.state.SetData(account, data); err != nil {
		return nil, err
	}
	e.emit(UserAccountCreatedEvent(account, owner))
	return record, nil
}

// LoadCreator reads the creator record at addr.
func (e *Engine) LoadCreator(addr types.Pubkey) (*CreatorAccount, error) {
	data, err := e.programData(addr)
	if err != nil {
		return nil, err
	}
	record, err := DecodeCreatorAccount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: creator account %s: %v", ErrItemDoesNotExist, addr, err)
	}
	return record, nil
}

// LoadUser reads the user record at addr.
func (e *Engine) LoadUser(addr types.Pubkey) (*UserAccount, error) {
	data, err := e.programData(addr)
	if err != nil {
		return nil, err
	}
	record, err := DecodeUserAccount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: user account %s: %v", ErrItemDoesNotExist, addr, err)
	}
	return record, nil
}

func (e *Engine) programData(addr types.Pubkey) ([]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.Account(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Owner != e.state.ProgramID() || len(acc.Data) == 0 {
		return nil, fmt.Errorf("%w: no program account at %s", ErrItemDoesNotExist, addr)
	}
	return acc.Data, nil
}

// AppendSubscription records one purchase on the user account. All four wire
// vectors grow together because they are encoded from a single record.
func (e *Engine) AppendSubscription(user, creator types.Pubkey, link, name string, endTime int64) (int, error) {
	record, err := e.LoadUser(user)
	if err != nil {
		return 0, err
	}
	if len(record.Subscriptions) >= MaxSubscriptions {
		return 0, ErrSubscriptionLimitReached
	}
	record.Subscriptions = append(record.Subscriptions, Subscription{
		Creator: creator,
		Link:    link,
		Name:    name,
		EndTime: endTime,
	})
	data, err := EncodeUserAccount(record)
	if err != nil {
		return 0, fmt.Errorf("subscription: encode user account: %w", err)
	}
	if err := e.state.SetData(user, data); err != nil {
		return 0, err
	}
	return len(record.Subscriptions), nil
}
