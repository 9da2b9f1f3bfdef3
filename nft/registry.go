package nft

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("token or collection not found")
	ErrUnauthorized   = errors.New("operator is not token owner nor approved")
	ErrInvalidAccount = errors.New("invalid account")
)

// Registry is the token ledger: collections, ownership and operator
// approvals. Token ids are sequential per collection, starting at 1.
type Registry struct {
	mutex sync.Mutex
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) CreateCollection(ctx context.Context, creator, name, symbol string) (*Collection, error) {
	if !validAccount(creator) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, creator)
	}
	if name == "" || symbol == "" {
		return nil, fmt.Errorf("invalid collection %q %q", name, symbol)
	}
	c := &Collection{
		Key:       uuid.Must(uuid.NewV4()).String(),
		Name:      name,
		Symbol:    symbol,
		Creator:   creator,
		CreatedAt: time.Now(),
	}
	err := r.store.WriteCollection(ctx, c)
	if err != nil {
		return nil, err
	}
	zap.L().Info("collection created", zap.String("asset", c.Key), zap.String("name", name))
	return c, nil
}

func (r *Registry) ReadCollection(ctx context.Context, asset string) (*Collection, error) {
	c, err := r.store.ReadCollection(ctx, asset)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: collection %s", ErrNotFound, asset)
	}
	return c, nil
}

// Mint creates the next token of the collection for owner and returns its id.
func (r *Registry) Mint(ctx context.Context, asset, owner, uri string) (string, error) {
	if !validAccount(owner) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccount, owner)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	var token *Token
	err := r.store.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := r.ReadCollection(ctx, asset)
		if err != nil {
			return err
		}
		c.Circulation += 1
		err = r.store.WriteCollection(ctx, c)
		if err != nil {
			return err
		}
		token = &Token{
			Collection: asset,
			TokenId:    strconv.FormatUint(c.Circulation, 10),
			Owner:      owner,
			URI:        uri,
			MintedAt:   time.Now(),
		}
		return r.store.WriteToken(ctx, token)
	})
	if err != nil {
		return "", err
	}
	zap.L().Info("token minted", zap.String("asset", asset), zap.String("token", token.TokenId), zap.String("owner", owner))
	return token.TokenId, nil
}

func (r *Registry) TokenCount(ctx context.Context, asset string) (uint64, error) {
	c, err := r.ReadCollection(ctx, asset)
	if err != nil {
		return 0, err
	}
	return c.Circulation, nil
}

func (r *Registry) ReadToken(ctx context.Context, asset, tokenId string) (*Token, error) {
	t, err := r.store.ReadToken(ctx, asset, tokenId)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, asset, tokenId)
	}
	return t, nil
}

func (r *Registry) OwnerOf(ctx context.Context, asset, tokenId string) (string, error) {
	t, err := r.ReadToken(ctx, asset, tokenId)
	if err != nil {
		return "", err
	}
	return t.Owner, nil
}

func (r *Registry) TokenURI(ctx context.Context, asset, tokenId string) (string, error) {
	t, err := r.ReadToken(ctx, asset, tokenId)
	if err != nil {
		return "", err
	}
	return t.URI, nil
}

func (r *Registry) BalanceOf(ctx context.Context, asset, owner string) (uint64, error) {
	return r.store.ReadTokenBalance(ctx, asset, owner)
}

func (r *Registry) SetApprovalForAll(ctx context.Context, asset, owner, operator string, approved bool) error {
	if !validAccount(owner) || !validAccount(operator) {
		return fmt.Errorf("%w: %q %q", ErrInvalidAccount, owner, operator)
	}
	if owner == operator {
		return fmt.Errorf("%w: approve to caller", ErrUnauthorized)
	}
	if _, err := r.ReadCollection(ctx, asset); err != nil {
		return err
	}
	return r.store.WriteApproval(ctx, asset, owner, operator, approved)
}

func (r *Registry) IsApprovedForAll(ctx context.Context, asset, owner, operator string) (bool, error) {
	return r.store.ReadApproval(ctx, asset, owner, operator)
}

// TransferFrom moves tokenId from from to to on behalf of operator, who must
// be from itself or an operator approved by from.
func (r *Registry) TransferFrom(ctx context.Context, asset, operator, from, to, tokenId string) error {
	if !validAccount(to) {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, to)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.store.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := r.ReadToken(ctx, asset, tokenId)
		if err != nil {
			return err
		}
		if t.Owner != from {
			return fmt.Errorf("%w: %s is not the owner of %s", ErrUnauthorized, from, tokenId)
		}
		if operator != from {
			approved, err := r.store.ReadApproval(ctx, asset, from, operator)
			if err != nil {
				return err
			}
			if !approved {
				return fmt.Errorf("%w: %s for %s", ErrUnauthorized, operator, from)
			}
		}
		t.Owner = to
		return r.store.WriteToken(ctx, t)
	})
}

func validAccount(id string) bool {
	uid, err := uuid.FromString(id)
	return err == nil && uid != uuid.Nil
}
