package subscription

import "subledger/core/types"

// ListSubscriptions returns the purchases on user with days left relative to
// the engine clock. Expired entries are kept; days left goes negative.
func (e *Engine) ListSubscriptions(user types.Pubkey) ([]SubscriptionView, error) {
	_, views, err := e.UserSubscriptions(user)
	return views, err
}

// UserSubscriptions loads user once and returns the record with its listing.
func (e *Engine) UserSubscriptions(user types.Pubkey) (*UserAccount, []SubscriptionView, error) {
	record, err := e.LoadUser(user)
	if err != nil {
		return nil, nil, err
	}
	now := e.now()
	views := make([]SubscriptionView, len(record.Subscriptions))
	for i, sub := range record.Subscriptions {
		views[i] = SubscriptionView{
			Creator:  sub.Creator,
			Name:     sub.Name,
			EndTime:  sub.EndTime,
			DaysLeft: (sub.EndTime - now) / SecondsPerDay,
		}
	}
	return record, views, nil
}

// GetLink returns the link of the index-th purchase, counting from 1 like the
// plan index given to Purchase.
func (e *Engine) GetLink(user types.Pubkey, index uint8) (string, error) {
	record, err := e.LoadUser(user)
	if err != nil {
		return "", err
	}
	if index == 0 || int(index) > len(record.Subscriptions) {
		return "", ErrItemDoesNotExist
	}
	return record.Subscriptions[index-1].Link, nil
}
