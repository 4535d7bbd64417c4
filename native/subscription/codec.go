package subscription

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/near/borsh-go"

	"subledger/core/types"
)

const discriminatorSize = 8

type discriminator [discriminatorSize]byte

// sighash derives the 8-byte tag Anchor clients use to tell accounts and
// instructions apart.
func sighash(namespace, name string) discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d discriminator
	copy(d[:], sum[:discriminatorSize])
	return d
}

var (
	creatorAccountDiscriminator = sighash("account", "CreatorAccount")
	userAccountDiscriminator    = sighash("account", "UserAccount")

	createCreatorAccountDiscriminator = sighash("global", "create_creator_account")
	createUserAccountDiscriminator    = sighash("global", "create_user_account")
	purchaseSubscriptionDiscriminator = sighash("global", "purchase_subscription")
	getSubscriptionLinkDiscriminator  = sighash("global", "get_subscription_link")
	logUserSubscriptionsDiscriminator = sighash("global", "log_user_subscriptions")
)

var errDiscriminatorMismatch = errors.New("subscription: discriminator mismatch")

// Wire layouts keep the record-of-arrays shape existing clients read.
type creatorLayout struct {
	Creator types.Pubkey
	Payto   types.Pubkey
	Name    []byte
	Prices  []uint64
	Names   [][]byte
	Images  [][]byte
}

type userLayout struct {
	Owner   types.Pubkey
	Keys    []types.Pubkey
	Links   [][]byte
	Names   [][]byte
	EndTime []int64
}

type createCreatorArgs struct {
	Name   string
	Prices []uint64
	Names  []string
	Images []string
}

type purchaseArgs struct {
	SolAmount   uint64
	OptionIndex uint8
}

type linkArgs struct {
	SubscriptionIndex uint8
}

type subscriptionList struct {
	Entries []SubscriptionView
}

func encodeTagged(tag discriminator, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(tag[:])
	if v != nil {
		body, err := borsh.Serialize(v)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	return buf.Bytes(), nil
}

func decodeTagged(tag discriminator, data []byte, v any) error {
	if len(data) < discriminatorSize || !bytes.Equal(data[:discriminatorSize], tag[:]) {
		return errDiscriminatorMismatch
	}
	return borsh.Deserialize(v, data[discriminatorSize:])
}

// EncodeCreatorAccount serializes a creator record to account data.
func EncodeCreatorAccount(acc *CreatorAccount) ([]byte, error) {
	layout := creatorLayout{
		Creator: acc.Creator,
		Payto:   acc.Payto,
		Name:    []byte(acc.Name),
		Prices:  make([]uint64, len(acc.Plans)),
		Names:   make([][]byte, len(acc.Plans)),
		Images:  make([][]byte, len(acc.Plans)),
	}
	for i, plan := range acc.Plans {
		layout.Prices[i] = plan.Price
		layout.Names[i] = []byte(plan.Name)
		layout.Images[i] = []byte(plan.ImageURL)
	}
	return encodeTagged(creatorAccountDiscriminator, layout)
}

// DecodeCreatorAccount parses account data written by EncodeCreatorAccount.
func DecodeCreatorAccount(data []byte) (*CreatorAccount, error) {
	var layout creatorLayout
	if err := decodeTagged(creatorAccountDiscriminator, data, &layout); err != nil {
		return nil, fmt.Errorf("decode creator account: %w", err)
	}
	if len(layout.Prices) != len(layout.Names) || len(layout.Names) != len(layout.Images) {
		return nil, fmt.Errorf("decode creator account: %w: %d prices, %d names, %d images",
			ErrInvalidInputLength, len(layout.Prices), len(layout.Names), len(layout.Images))
	}
	acc := &CreatorAccount{
		Creator: layout.Creator,
		Payto:   layout.Payto,
		Name:    string(layout.Name),
		Plans:   make([]Plan, len(layout.Prices)),
	}
	for i := range layout.Prices {
		acc.Plans[i] = Plan{Price: layout.Prices[i], Name: string(layout.Names[i]), ImageURL: string(layout.Images[i])}
	}
	return acc, nil
}

// EncodeUserAccount serializes a user record to account data.
func EncodeUserAccount(acc *UserAccount) ([]byte, error) {
	n := len(acc.Subscriptions)
	layout := userLayout{
		Owner:   acc.Owner,
		Keys:    make([]types.Pubkey, n),
		Links:   make([][]byte, n),
		Names:   make([][]byte, n),
		EndTime: make([]int64, n),
	}
	for i, sub := range acc.Subscriptions {
		layout.Keys[i] = sub.Creator
		layout.Links[i] = []byte(sub.Link)
		layout.Names[i] = []byte(sub.Name)
		layout.EndTime[i] = sub.EndTime
	}
	return encodeTagged(userAccountDiscriminator, layout)
}

// DecodeUserAccount parses account data written by EncodeUserAccount.
func DecodeUserAccount(data []byte) (*UserAccount, error) {
	var layout userLayout
	if err := decodeTagged(userAccountDiscriminator, data, &layout); err != nil {
		return nil, fmt.Errorf("decode user account: %w", err)
	}
	n := len(layout.Keys)
	if len(layout.Links) != n || len(layout.Names) != n || len(layout.EndTime) != n {
		return nil, fmt.Errorf("decode user account: %w: %d keys, %d links, %d names, %d endtimes",
			ErrInvalidInputLength, n, len(layout.Links), len(layout.Names), len(layout.EndTime))
	}
	acc := &UserAccount{Owner: layout.Owner, Subscriptions: make([]Subscription, n)}
	for i := range layout.Keys {
		acc.Subscriptions[i] = Subscription{
			Creator: layout.Keys[i],
			Link:    string(layout.Links[i]),
			Name:    string(layout.Names[i]),
			EndTime: layout.EndTime[i],
		}
	}
	return acc, nil
}

// EncodeSubscriptionList is the return data of logUserSubscriptions.
func EncodeSubscriptionList(views []SubscriptionView) ([]byte, error) {
	return borsh.Serialize(subscriptionList{Entries: views})
}

// DecodeSubscriptionList parses logUserSubscriptions return data.
func DecodeSubscriptionList(data []byte) ([]SubscriptionView, error) {
	var list subscriptionList
	if err := borsh.Deserialize(&list, data); err != nil {
		return nil, fmt.Errorf("decode subscription list: %w", err)
	}
	return list.Entries, nil
}

// EncodeImageURL applies the URL-safe base64 transport older clients send
// image links in.
func EncodeImageURL(link string) string {
	return base64.URLEncoding.EncodeToString([]byte(link))
}

// DecodeImageURL accepts an image argument either as a plain URL or in its
// base64 transport form. Text that already parses as an absolute URL is
// returned unchanged; anything undecodable is returned as given so validation
// can reject it.
func DecodeImageURL(raw string) string {
	if isAbsoluteURL(raw) {
		return raw
	}
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(raw)
	}
	if err != nil || !utf8.Valid(decoded) {
		return raw
	}
	return string(decoded)
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
