package nft

import (
	"context"
	"time"
)

type Store interface {
	RunInTransaction(ctx context.Context, fn func(context.Context) error) error

	WriteCollection(ctx context.Context, c *Collection) error
	ReadCollection(ctx context.Context, asset string) (*Collection, error)

	WriteToken(ctx context.Context, t *Token) error
	ReadToken(ctx context.Context, asset, tokenId string) (*Token, error)
	ReadTokenBalance(ctx context.Context, asset, owner string) (uint64, error)

	WriteApproval(ctx context.Context, asset, owner, operator string, approved bool) error
	ReadApproval(ctx context.Context, asset, owner, operator string) (bool, error)
}

// Collection is one token contract; its Key is the asset ref listings use.
type Collection struct {
	Key         string
	Name        string
	Symbol      string
	Creator     string
	Circulation uint64
	CreatedAt   time.Time
}

type Token struct {
	Collection string
	TokenId    string
	Owner      string
	URI        string
	MintedAt   time.Time
}
