package subscription

import "subledger/core/types"

const (
	// MaxPlans bounds a creator catalog.
	MaxPlans = 32
	// MaxSubscriptions bounds the purchases recorded on one user account.
	MaxSubscriptions = 32
	MaxNameLength    = 32
	MaxURLLength     = 64

	SecondsPerDay int64 = 86400
	// SubscriptionDuration is how long a purchase stays valid.
	SubscriptionDuration = 30 * SecondsPerDay

	// MinPlanPrice is the cheapest listable plan, in lamports.
	MinPlanPrice uint64 = 1
)

// Allocated space for each account kind: discriminator plus the largest
// possible encoding of the layout.
const (
	CreatorAccountSpace = 8 + 32 + 32 +
		(4 + MaxNameLength) +
		(4 + MaxPlans*(4+MaxNameLength)) +
		(4 + MaxPlans*(4+8)) +
		(4 + MaxPlans*(4+MaxURLLength))
	UserAccountSpace = 8 + 32 +
		(4 + MaxSubscriptions*32) +
		(4 + MaxSubscriptions*(4+MaxURLLength)) +
		(4 + MaxSubscriptions*(4+MaxNameLength)) +
		(4 + MaxSubscriptions*8)
)

// ProgramID is the address the subscription program is deployed at.
var ProgramID = types.MustPubkey("EvHqnZaXDeqTVSgmtFqjVEUhTchtZAiUXi8gme7juq58")

// Plan is one tier of a creator catalog.
type Plan struct {
	Price    uint64 `json:"price"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// CreatorAccount is the catalog a creator publishes. Plans are fixed at
// creation.
type CreatorAccount struct {
	Creator types.Pubkey `json:"creator"`
	Payto   types.Pubkey `json:"payto"`
	Name    string       `json:"name"`
	Plans   []Plan       `json:"plans"`
}

// Subscription is one purchase recorded on a user account.
type Subscription struct {
	Creator types.Pubkey `json:"creator"`
	Link    string       `json:"link"`
	Name    string       `json:"name"`
	EndTime int64        `json:"endTime"`
}

// UserAccount holds a user's purchases in the order they were made.
type UserAccount struct {
	Owner         types.Pubkey   `json:"owner"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// SubscriptionView is the read-only listing entry returned by
// logUserSubscriptions.
type SubscriptionView struct {
	Creator  types.Pubkey `json:"creator"`
	Name     string       `json:"name"`
	EndTime  int64        `json:"endTime"`
	DaysLeft int64        `json:"daysLeft"`
}

// Receipt describes a successful purchase.
type Receipt struct {
	Subscription Subscription `json:"subscription"`
	// Position is the 1-based index accepted by GetLink.
	Position int `json:"position"`
}

func (c *CreatorAccount) Clone() *CreatorAccount {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Plans = append([]Plan(nil), c.Plans...)
	return &clone
}

func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Subscriptions = append([]Subscription(nil), u.Subscriptions...)
	return &clone
}
