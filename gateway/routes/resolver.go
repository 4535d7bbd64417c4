package routes

import (
	"context"
	"errors"
	"fmt"

	"subledger/config"
	"subledger/core/types"
)

// ErrKeyNotFound is returned when a token has no creator keys on record.
var ErrKeyNotFound = errors.New("gateway: creator keys not found")

// KeyResolver maps an API token to the creator's signing key and payout key.
// The storage behind it is owned by the embedding service.
type KeyResolver interface {
	ResolveOwnerAndPayto(ctx context.Context, token string) (owner types.Pubkey, payto types.Pubkey, err error)
}

type keyPair struct {
	owner types.Pubkey
	payto types.Pubkey
}

// StaticResolver serves keys from a fixed table.
type StaticResolver struct {
	keys map[string]keyPair
}

// NewStaticResolver builds a resolver from the [gateway.Tokens] config table.
func NewStaticResolver(tokens map[string]config.TokenKeys) (*StaticResolver, error) {
	keys := make(map[string]keyPair, len(tokens))
	for token, entry := range tokens {
		owner, err := types.ParsePubkey(entry.Owner)
		if err != nil {
			return nil, fmt.Errorf("token %s owner: %w", token, err)
		}
		payto, err := types.ParsePubkey(entry.Payto)
		if err != nil {
			return nil, fmt.Errorf("token %s payto: %w", token, err)
		}
		keys[token] = keyPair{owner: owner, payto: payto}
	}
	return &StaticResolver{keys: keys}, nil
}

func (s *StaticResolver) ResolveOwnerAndPayto(_ context.Context, token string) (types.Pubkey, types.Pubkey, error) {
	pair, ok := s.keys[token]
	if !ok {
		return types.Pubkey{}, types.Pubkey{}, ErrKeyNotFound
	}
	return pair.owner, pair.payto, nil
}
