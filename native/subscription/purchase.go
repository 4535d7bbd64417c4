package subscription

import (
	"subledger/core/types"
)

// Purchase buys plan optionIndex (1-based) of creatorAccount for userAccount,
// paying solAmount from signer to payto. Every check runs before the transfer;
// the transfer and the appended record land together or not at all.
func (e *Engine) Purchase(payto, creatorAccount, userAccount, signer types.Pubkey, solAmount uint64, optionIndex uint8) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	creator, err := e.LoadCreator(creatorAccount)
	if err != nil {
		return nil, err
	}
	user, err := e.LoadUser(userAccount)
	if err != nil {
		return nil, err
	}
	if optionIndex == 0 || int(optionIndex) > len(creator.Plans) {
		return nil, ErrItemDoesNotExist
	}
	if creator.Payto != payto {
		return nil, ErrKeysMismatch
	}
	plan := creator.Plans[optionIndex-1]
	if solAmount != plan.Price {
		return nil, ErrInvalidAmountOfSol
	}
	if len(user.Subscriptions) >= MaxSubscriptions {
		return nil, ErrSubscriptionLimitReached
	}

	if err := e.state.Transfer(signer, payto, solAmount); err != nil {
		return nil, err
	}
	sub := Subscription{
		Creator: creatorAccount,
		Link:    plan.ImageURL,
		Name:    plan.Name,
		EndTime: e.now() + SubscriptionDuration,
	}
	position, err := e.AppendSubscription(userAccount, sub.Creator, sub.Link, sub.Name, sub.EndTime)
	if err != nil {
		return nil, err
	}
	e.emit(SubscriptionPurchasedEvent(userAccount, creatorAccount, signer, optionIndex, solAmount, sub.EndTime))
	return &Receipt{Subscription: sub, Position: position}, nil
}
