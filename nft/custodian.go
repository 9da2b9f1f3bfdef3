package nft

import (
	"context"
	"errors"
)

// Custodian is the registry as seen by the marketplace: every transfer is
// made with the marketplace account as operator.
type Custodian struct {
	registry *Registry
	operator string
}

func NewCustodian(registry *Registry, operator string) *Custodian {
	return &Custodian{registry: registry, operator: operator}
}

func (c *Custodian) OwnerOrApproved(ctx context.Context, asset, account, tokenId string) (bool, error) {
	owner, err := c.registry.OwnerOf(ctx, asset, tokenId)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if owner == account {
		return true, nil
	}
	return c.registry.IsApprovedForAll(ctx, asset, owner, account)
}

func (c *Custodian) TransferCustody(ctx context.Context, asset, from, to, tokenId string) error {
	return c.registry.TransferFrom(ctx, asset, c.operator, from, to, tokenId)
}
