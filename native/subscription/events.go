package subscription

import (
	"strconv"

	"subledger/core/types"
)

const (
	// EventTypeCreatorAccountCreated is emitted when a creator publishes a catalog.
	EventTypeCreatorAccountCreated = "subscription.creator.created"
	// EventTypeUserAccountCreated is emitted when a user account is allocated.
	EventTypeUserAccountCreated = "subscription.user.created"
	// EventTypeSubscriptionPurchased is emitted for every successful purchase.
	EventTypeSubscriptionPurchased = "subscription.purchased"
)

// CreatorAccountCreatedEvent returns the structured event payload for a new catalog.
func CreatorAccountCreatedEvent(account types.Pubkey, record *CreatorAccount) *types.Event {
	return &types.Event{
		Type: EventTypeCreatorAccountCreated,
		Attributes: map[string]string{
			"account": account.String(),
			"creator": record.Creator.String(),
			"payto":   record.Payto.String(),
			"name":    record.Name,
			"plans":   strconv.Itoa(len(record.Plans)),
		},
	}
}

// UserAccountCreatedEvent returns the structured event payload for a new user account.
func UserAccountCreatedEvent(account, owner types.Pubkey) *types.Event {
	return &types.Event{
		Type: EventTypeUserAccountCreated,
		Attributes: map[string]string{
			"account": account.String(),
			"owner":   owner.String(),
		},
	}
}

// SubscriptionPurchasedEvent returns the structured event payload for a purchase.
func SubscriptionPurchasedEvent(user, creator, payer types.Pubkey, option uint8, amount uint64, endTime int64) *types.Event {
	return &types.Event{
		Type: EventTypeSubscriptionPurchased,
		Attributes: map[string]string{
			"user":    user.String(),
			"creator": creator.String(),
			"payer":   payer.String(),
			"option":  strconv.Itoa(int(option)),
			"amount":  strconv.FormatUint(amount, 10),
			"endTime": strconv.FormatInt(endTime, 10),
		},
	}
}
