package market_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/gofrs/uuid"
	"github.com/lainhathoang/nft-market/market"
	"github.com/lainhathoang/nft-market/nft"
	"github.com/lainhathoang/nft-market/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *store.BadgerStore
	registry *nft.Registry
	market   *market.Marketplace
	notifier *recordingNotifier

	account      string
	feeRecipient string
	asset        string
	seller       string
	buyer        string
}

func newAccount() string {
	return uuid.Must(uuid.NewV4()).String()
}

func setupMarket(t *testing.T, bps int64) *testEnv {
	return setupMarketWithRegistry(t, bps, nil)
}

// setupMarketWithRegistry builds a marketplace over an in-memory store. wrap,
// when set, decorates the custodian handed to the marketplace.
func setupMarketWithRegistry(t *testing.T, bps int64, wrap func(r market.Registry, account string) market.Registry) *testEnv {
	ctx, cancel := context.WithCancel(context.Background())
	db, err := store.OpenBadger(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		db.Close()
	})

	env := &testEnv{
		store:        db,
		registry:     nft.NewRegistry(db),
		account:      newAccount(),
		feeRecipient: newAccount(),
		seller:       newAccount(),
		buyer:        newAccount(),
	}
	var custody market.Registry = nft.NewCustodian(env.registry, env.account)
	if wrap != nil {
		custody = wrap(custody, env.account)
	}
	env.market, err = market.NewMarketplace(db, custody, &market.Configuration{
		Account:        env.account,
		FeeRecipient:   env.feeRecipient,
		FeeBasisPoints: bps,
	})
	require.NoError(t, err)
	env.notifier = &recordingNotifier{market: env.market}
	env.market.AddNotifier(env.notifier)

	c, err := env.registry.CreateCollection(ctx, env.seller, "DApp NFT", "DAPP")
	require.NoError(t, err)
	env.asset = c.Key
	err = env.registry.SetApprovalForAll(ctx, env.asset, env.seller, env.account, true)
	require.NoError(t, err)
	return env
}

func (env *testEnv) mint(t *testing.T, owner string) string {
	tokenId, err := env.registry.Mint(context.Background(), env.asset, owner, "ipfs://token")
	require.NoError(t, err)
	return tokenId
}

func (env *testEnv) list(t *testing.T, price string) (uint64, string) {
	tokenId := env.mint(t, env.seller)
	id, err := env.market.CreateListing(context.Background(), env.seller, env.asset, tokenId, decimal.RequireFromString(price))
	require.NoError(t, err)
	return id, tokenId
}

func (env *testEnv) deposit(t *testing.T, account, amount string) {
	err := env.market.Deposit(context.Background(), account, decimal.RequireFromString(amount), newAccount())
	require.NoError(t, err)
}

func (env *testEnv) balance(t *testing.T, account string) string {
	bal, err := env.market.Balance(context.Background(), account)
	require.NoError(t, err)
	return bal.String()
}

func (env *testEnv) owner(t *testing.T, tokenId string) string {
	owner, err := env.registry.OwnerOf(context.Background(), env.asset, tokenId)
	require.NoError(t, err)
	return owner
}

type recordingNotifier struct {
	sync.Mutex
	market    *market.Marketplace
	listings  []*market.ListingCreated
	purchases []*market.PurchaseCompleted
	soldSeen  []bool
}

func (n *recordingNotifier) OnListingCreated(ctx context.Context, evt *market.ListingCreated) {
	n.Lock()
	defer n.Unlock()
	n.listings = append(n.listings, evt)
}

// OnPurchaseCompleted records whether the sale is already visible to readers.
func (n *recordingNotifier) OnPurchaseCompleted(ctx context.Context, evt *market.PurchaseCompleted) {
	item, err := n.market.GetItem(context.Background(), evt.ItemId)
	n.Lock()
	defer n.Unlock()
	n.purchases = append(n.purchases, evt)
	n.soldSeen = append(n.soldSeen, err == nil && item.Sold)
}

type failingCustody struct {
	market.Registry
	account string
}

func (f *failingCustody) TransferCustody(ctx context.Context, asset, from, to, tokenId string) error {
	if from == f.account {
		return errors.New("registry unavailable")
	}
	return f.Registry.TransferCustody(ctx, asset, from, to, tokenId)
}

func TestNewMarketplaceConfiguration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db, err := store.OpenBadger(ctx, "")
	require.NoError(t, err)
	defer db.Close()
	custody := nft.NewCustodian(nft.NewRegistry(db), newAccount())

	account := newAccount()
	testCases := []struct {
		name string
		conf market.Configuration
	}{
		{"invalid account", market.Configuration{Account: "market", FeeRecipient: newAccount(), FeeBasisPoints: 100}},
		{"nil account", market.Configuration{Account: uuid.Nil.String(), FeeRecipient: newAccount(), FeeBasisPoints: 100}},
		{"missing fee recipient", market.Configuration{Account: account, FeeBasisPoints: 100}},
		{"negative rate", market.Configuration{Account: account, FeeRecipient: newAccount(), FeeBasisPoints: -1}},
		{"rate above denominator", market.Configuration{Account: account, FeeRecipient: newAccount(), FeeBasisPoints: 10001}},
		{"fee recipient is escrow", market.Configuration{Account: account, FeeRecipient: account, FeeBasisPoints: 100}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := tc.conf
			_, err := market.NewMarketplace(db, custody, &conf)
			assert.ErrorIs(t, err, market.ErrInvalidConfig)
		})
	}

	recipient := newAccount()
	m, err := market.NewMarketplace(db, custody, &market.Configuration{Account: account, FeeRecipient: recipient, FeeBasisPoints: 250})
	require.NoError(t, err)
	assert.Equal(t, account, m.Account())
	assert.Equal(t, recipient, m.FeeRecipient())
	assert.Equal(t, int64(250), m.FeeRate())
}

func TestCreateListing(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	env := setupMarket(t, 100)

	count, err := env.market.ItemCount(ctx)
	require.NoError(err)
	assert.Equal(uint64(0), count)

	for i := uint64(1); i <= 3; i++ {
		id, tokenId := env.list(t, "1.5")
		assert.Equal(i, id)
		count, err = env.market.ItemCount(ctx)
		require.NoError(err)
		assert.Equal(i, count)
		assert.Equal(env.account, env.owner(t, tokenId))

		item, err := env.market.GetItem(ctx, id)
		require.NoError(err)
		assert.Equal(id, item.ItemId)
		assert.Equal(env.asset, item.Asset)
		assert.Equal(tokenId, item.TokenId)
		assert.Equal("1.5", item.Price.String())
		assert.Equal(env.seller, item.Seller)
		assert.False(item.Sold)
		assert.Equal("", item.Buyer)
		assert.Equal(market.ItemStateListed, item.StateName())
	}

	require.Len(env.notifier.listings, 3)
	evt := env.notifier.listings[2]
	assert.Equal(uint64(3), evt.ItemId)
	assert.Equal(env.asset, evt.Asset)
	assert.Equal(env.seller, evt.Seller)
	assert.Equal("1.5", evt.Price.String())

	items, err := env.market.ListItems(ctx, 1, 10)
	require.NoError(err)
	require.Len(items, 2)
	assert.Equal(uint64(2), items[0].ItemId)
	assert.Equal(uint64(3), items[1].ItemId)

	items, err = env.market.ListItemsBySeller(ctx, env.seller, 2)
	require.NoError(err)
	assert.Len(items, 2)
}

func TestCreateListingInvalidPrice(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	tokenId := env.mint(t, env.seller)

	for _, price := range []string{"0", "-1", "0.000000001"} {
		_, err := env.market.CreateListing(ctx, env.seller, env.asset, tokenId, decimal.RequireFromString(price))
		assert.ErrorIs(t, err, market.ErrInvalidPrice, price)
	}

	count, err := env.market.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	assert.Equal(t, env.seller, env.owner(t, tokenId))
	assert.Empty(t, env.notifier.listings)
}

func TestCreateListingUnauthorized(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	price := decimal.RequireFromString("1")
	tokenId := env.mint(t, env.seller)

	stranger := newAccount()
	_, err := env.market.CreateListing(ctx, stranger, env.asset, tokenId, price)
	assert.ErrorIs(t, err, market.ErrUnauthorized)

	_, err = env.market.CreateListing(ctx, env.seller, env.asset, "404", price)
	assert.ErrorIs(t, err, market.ErrUnauthorized)

	_, err = env.market.CreateListing(ctx, "seller", env.asset, tokenId, price)
	assert.ErrorIs(t, err, market.ErrUnauthorized)

	_, err = env.market.CreateListing(ctx, env.account, env.asset, tokenId, price)
	assert.ErrorIs(t, err, market.ErrUnauthorized)

	// owner without approval for the marketplace
	other := newAccount()
	otherToken := env.mint(t, other)
	_, err = env.market.CreateListing(ctx, other, env.asset, otherToken, price)
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	assert.ErrorIs(t, err, nft.ErrUnauthorized)
	assert.Equal(t, other, env.owner(t, otherToken))

	count, err := env.market.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	events, err := env.market.ListEvents(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	// an escrowed token can not be listed twice
	_, tokenId = env.list(t, "1")
	_, err = env.market.CreateListing(ctx, env.seller, env.asset, tokenId, price)
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	count, err = env.market.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestItemNotFound(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	env.list(t, "1")

	for _, id := range []uint64{0, 2, 100} {
		_, err := env.market.GetItem(ctx, id)
		assert.ErrorIs(t, err, market.ErrItemNotFound)
		_, err = env.market.TotalPrice(ctx, id)
		assert.ErrorIs(t, err, market.ErrItemNotFound)
		_, err = env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, market.ErrItemNotFound)
	}
}

func TestPurchaseItem(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	env := setupMarket(t, 100)

	id, tokenId := env.list(t, "2")
	total, err := env.market.TotalPrice(ctx, id)
	require.NoError(err)
	assert.Equal("2.02", total.String())

	env.deposit(t, env.buyer, "10")
	receipt, err := env.market.PurchaseItem(ctx, env.buyer, id, total)
	require.NoError(err)
	assert.Equal(id, receipt.ItemId)
	assert.Equal(env.seller, receipt.Seller)
	assert.Equal(env.buyer, receipt.Buyer)
	assert.Equal("2", receipt.Price.String())
	assert.Equal("0.02", receipt.Fee.String())
	assert.Equal("2.02", receipt.Total.String())

	assert.Equal("2", env.balance(t, env.seller))
	assert.Equal("0.02", env.balance(t, env.feeRecipient))
	assert.Equal("7.98", env.balance(t, env.buyer))
	assert.Equal("0", env.balance(t, env.account))
	assert.Equal(env.buyer, env.owner(t, tokenId))

	item, err := env.market.GetItem(ctx, id)
	require.NoError(err)
	assert.True(item.Sold)
	assert.Equal(env.buyer, item.Buyer)
	assert.Equal(market.ItemStateSold, item.StateName())
	assert.True(item.UpdatedAt.After(item.CreatedAt))

	require.Len(env.notifier.purchases, 1)
	assert.Equal(env.buyer, env.notifier.purchases[0].Buyer)
	assert.Equal(env.seller, env.notifier.purchases[0].Seller)
	assert.Equal([]bool{true}, env.notifier.soldSeen)

	items, err := env.market.ListItemsByBuyer(ctx, env.buyer, 10)
	require.NoError(err)
	require.Len(items, 1)
	assert.Equal(id, items[0].ItemId)

	events, err := env.market.ListEvents(ctx, 0, 10)
	require.NoError(err)
	require.Len(events, 2)
	assert.Equal(uint64(1), events[0].Sequence)
	assert.Equal(market.EventTypeListingCreated, events[0].Type)
	assert.Equal(uint64(2), events[1].Sequence)
	assert.Equal(market.EventTypePurchaseCompleted, events[1].Type)
	assert.Equal(env.buyer, events[1].Buyer)

	transfer, err := env.store.ReadTransfer(ctx, receipt.TraceId)
	require.NoError(err)
	require.NotNil(transfer)
	assert.Equal(env.buyer, transfer.Sender)
	assert.Equal(env.seller, transfer.Receiver)
	assert.Equal("2", transfer.Amount.String())
}

func TestPurchaseOnePercentOfOne(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, _ := env.list(t, "1.0")

	total, err := env.market.TotalPrice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1.01", total.String())

	env.deposit(t, env.buyer, "1.01")
	_, err = env.market.PurchaseItem(ctx, env.buyer, id, total)
	require.NoError(t, err)
	assert.Equal(t, "0", env.balance(t, env.buyer))
	assert.Equal(t, "1", env.balance(t, env.seller))
	assert.Equal(t, "0.01", env.balance(t, env.feeRecipient))
}

func TestPurchaseOverpayment(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, _ := env.list(t, "2")
	env.deposit(t, env.buyer, "5")

	receipt, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "2.02", receipt.Total.String())
	assert.Equal(t, "2.98", env.balance(t, env.buyer))
	assert.Equal(t, "2", env.balance(t, env.seller))
}

func TestPurchaseByZeroFeeAndSeller(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 0)
	id, tokenId := env.list(t, "3")
	env.deposit(t, env.seller, "3")

	receipt, err := env.market.PurchaseItem(ctx, env.seller, id, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, receipt.Fee.IsZero())
	assert.Equal(t, "3", env.balance(t, env.seller))
	assert.Equal(t, "0", env.balance(t, env.feeRecipient))
	assert.Equal(t, env.seller, env.owner(t, tokenId))
}

func TestPurchaseInsufficientPayment(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, tokenId := env.list(t, "2")
	env.deposit(t, env.buyer, "10")

	for _, amount := range []string{"0", "2", "2.01999999"} {
		_, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, market.ErrInsufficientPayment, amount)
	}

	item, err := env.market.GetItem(ctx, id)
	require.NoError(t, err)
	assert.False(t, item.Sold)
	assert.Equal(t, "10", env.balance(t, env.buyer))
	assert.Equal(t, env.account, env.owner(t, tokenId))
	assert.Empty(t, env.notifier.purchases)
}

func TestPurchaseAlreadySold(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, tokenId := env.list(t, "2")
	env.deposit(t, env.buyer, "10")
	other := newAccount()
	env.deposit(t, other, "10")

	_, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = env.market.PurchaseItem(ctx, other, id, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, market.ErrAlreadySold)
	_, err = env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, market.ErrAlreadySold)

	assert.Equal(t, "10", env.balance(t, other))
	assert.Equal(t, "7.98", env.balance(t, env.buyer))
	assert.Equal(t, "2", env.balance(t, env.seller))
	assert.Equal(t, env.buyer, env.owner(t, tokenId))
	assert.Len(t, env.notifier.purchases, 1)
}

func TestPurchaseUnauthorizedCaller(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, _ := env.list(t, "2")

	_, err := env.market.PurchaseItem(ctx, "buyer", id, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	_, err = env.market.PurchaseItem(ctx, env.account, id, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, market.ErrUnauthorized)
}

func TestPurchaseRollbackOnPaymentFailure(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, tokenId := env.list(t, "2")
	// covers the seller leg but not the fee leg
	env.deposit(t, env.buyer, "2.01")

	_, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.RequireFromString("2.02"))
	assert.ErrorIs(t, err, market.ErrPaymentFailed)
	assert.ErrorIs(t, err, store.ErrInsufficientBalance)

	item, err := env.market.GetItem(ctx, id)
	require.NoError(t, err)
	assert.False(t, item.Sold)
	assert.Equal(t, "", item.Buyer)
	assert.Equal(t, "2.01", env.balance(t, env.buyer))
	assert.Equal(t, "0", env.balance(t, env.seller))
	assert.Equal(t, "0", env.balance(t, env.feeRecipient))
	assert.Equal(t, env.account, env.owner(t, tokenId))

	events, err := env.market.ListEvents(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Empty(t, env.notifier.purchases)

	items, err := env.market.ListItemsByBuyer(ctx, env.buyer, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPurchaseRollbackOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	env := setupMarketWithRegistry(t, 100, func(r market.Registry, account string) market.Registry {
		return &failingCustody{Registry: r, account: account}
	})

	id, tokenId := env.list(t, "2")
	env.deposit(t, env.buyer, "10")

	_, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, market.ErrTransferFailed)

	item, err := env.market.GetItem(ctx, id)
	require.NoError(t, err)
	assert.False(t, item.Sold)
	assert.Equal(t, "10", env.balance(t, env.buyer))
	assert.Equal(t, "0", env.balance(t, env.seller))
	assert.Equal(t, "0", env.balance(t, env.feeRecipient))
	assert.Equal(t, env.account, env.owner(t, tokenId))
	assert.Empty(t, env.notifier.purchases)
	assert.Len(t, env.notifier.listings, 1)

	events, err := env.market.ListEvents(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestConcurrentPurchases(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, tokenId := env.list(t, "1")

	buyers := make([]string, 8)
	for i := range buyers {
		buyers[i] = newAccount()
		env.deposit(t, buyers[i], "5")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer string) {
			defer wg.Done()
			_, errs[i] = env.market.PurchaseItem(ctx, buyer, id, decimal.NewFromInt(5))
		}(i, buyer)
	}
	wg.Wait()

	var winner string
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winner)
			winner = buyers[i]
			continue
		}
		assert.ErrorIs(t, err, market.ErrAlreadySold)
		assert.Equal(t, "5", env.balance(t, buyers[i]))
	}
	require.NotEmpty(t, winner)
	assert.Equal(t, winner, env.owner(t, tokenId))
	assert.Equal(t, "3.99", env.balance(t, winner))
	assert.Equal(t, "1", env.balance(t, env.seller))
	assert.Len(t, env.notifier.purchases, 1)
}

func TestConcurrentListings(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)

	tokens := make([]string, 8)
	for i := range tokens {
		tokens[i] = env.mint(t, env.seller)
	}

	var wg sync.WaitGroup
	ids := make([]uint64, len(tokens))
	for i, tokenId := range tokens {
		wg.Add(1)
		go func(i int, tokenId string) {
			defer wg.Done()
			id, err := env.market.CreateListing(ctx, env.seller, env.asset, tokenId, decimal.NewFromInt(1))
			assert.NoError(t, err)
			ids[i] = id
		}(i, tokenId)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, id := range ids {
		assert.True(t, id >= 1 && id <= uint64(len(tokens)))
		assert.False(t, seen[id])
		seen[id] = true
	}
	count, err := env.market.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(tokens)), count)
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	trace := newAccount()

	err := env.market.Deposit(ctx, env.buyer, decimal.NewFromInt(3), trace)
	require.NoError(t, err)
	err = env.market.Deposit(ctx, env.buyer, decimal.NewFromInt(3), trace)
	require.NoError(t, err)
	assert.Equal(t, "3", env.balance(t, env.buyer))

	err = env.market.Deposit(ctx, env.buyer, decimal.Zero, newAccount())
	assert.Error(t, err)
	err = env.market.Deposit(ctx, env.buyer, decimal.NewFromInt(1), "trace")
	assert.Error(t, err)
	err = env.market.Deposit(ctx, "buyer", decimal.NewFromInt(1), newAccount())
	assert.ErrorIs(t, err, market.ErrUnauthorized)
}

func TestDepositCannotClaimSettlementTrace(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)

	sellerTrace := mixin.UniqueConversationID("1", "settlement:seller")
	feeTrace := mixin.UniqueConversationID("1", "settlement:fee")
	err := env.market.Deposit(ctx, env.buyer, decimal.RequireFromString("0.02"), sellerTrace)
	require.NoError(t, err)
	err = env.market.Deposit(ctx, env.buyer, decimal.NewFromInt(2), feeTrace)
	require.NoError(t, err)

	id, tokenId := env.list(t, "2")
	require.Equal(t, uint64(1), id)
	receipt, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.RequireFromString("2.02"))
	require.NoError(t, err)
	assert.Equal(t, sellerTrace, receipt.TraceId)

	assert.Equal(t, "2", env.balance(t, env.seller))
	assert.Equal(t, "0.02", env.balance(t, env.feeRecipient))
	assert.Equal(t, "0", env.balance(t, env.buyer))
	assert.Equal(t, env.buyer, env.owner(t, tokenId))

	transfer, err := env.store.ReadTransfer(ctx, sellerTrace)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, env.buyer, transfer.Sender)
	assert.Equal(t, env.seller, transfer.Receiver)
}

func TestPurchaseFailsOnRecordedSettlement(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, tokenId := env.list(t, "2")
	env.deposit(t, env.buyer, "10")

	err := env.store.WriteTransfer(ctx, &market.Transfer{
		TraceId:  mixin.UniqueConversationID("1", "settlement:fee"),
		Receiver: env.feeRecipient,
		Amount:   decimal.RequireFromString("0.02"),
	})
	require.NoError(t, err)

	_, err = env.market.PurchaseItem(ctx, env.buyer, id, decimal.RequireFromString("2.02"))
	assert.ErrorIs(t, err, market.ErrPaymentFailed)

	item, err := env.market.GetItem(ctx, id)
	require.NoError(t, err)
	assert.False(t, item.Sold)
	assert.Equal(t, "10", env.balance(t, env.buyer))
	assert.Equal(t, "0", env.balance(t, env.seller))
	assert.Equal(t, "0.02", env.balance(t, env.feeRecipient))
	assert.Equal(t, env.account, env.owner(t, tokenId))
	assert.Empty(t, env.notifier.purchases)
}

func TestDepositTraceConflict(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	trace := newAccount()

	require.NoError(t, env.market.Deposit(ctx, env.buyer, decimal.NewFromInt(3), trace))
	err := env.market.Deposit(ctx, env.buyer, decimal.NewFromInt(4), trace)
	assert.ErrorIs(t, err, store.ErrTraceConflict)
	err = env.market.Deposit(ctx, env.seller, decimal.NewFromInt(3), trace)
	assert.ErrorIs(t, err, store.ErrTraceConflict)
	assert.Equal(t, "3", env.balance(t, env.buyer))
	assert.Equal(t, "0", env.balance(t, env.seller))
}

func TestListItemsInState(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	for i := 0; i < 103; i++ {
		env.list(t, "1")
	}
	env.deposit(t, env.buyer, "10")
	for _, id := range []uint64{2, 102} {
		_, err := env.market.PurchaseItem(ctx, env.buyer, id, decimal.RequireFromString("1.01"))
		require.NoError(t, err)
	}

	sold, err := env.market.ListItemsInState(ctx, market.ItemStateSold, 0, 10)
	require.NoError(t, err)
	require.Len(t, sold, 2)
	assert.Equal(t, uint64(2), sold[0].ItemId)
	assert.Equal(t, uint64(102), sold[1].ItemId)

	listed, err := env.market.ListItemsInState(ctx, market.ItemStateListed, 0, 10)
	require.NoError(t, err)
	require.Len(t, listed, 10)
	assert.Equal(t, uint64(1), listed[0].ItemId)
	assert.Equal(t, uint64(3), listed[1].ItemId)
	assert.Equal(t, uint64(11), listed[9].ItemId)

	listed, err = env.market.ListItemsInState(ctx, market.ItemStateListed, 100, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, uint64(101), listed[0].ItemId)
	assert.Equal(t, uint64(103), listed[1].ItemId)
}

func TestRejectedCallsKeepClock(t *testing.T) {
	ctx := context.Background()
	env := setupMarket(t, 100)
	id, _ := env.list(t, "2")
	env.deposit(t, env.buyer, "10")
	tokenId := env.mint(t, env.seller)

	key := []byte("MARKET:CLOCK:MONOTONIC")
	before, err := env.store.ReadProperty(key)
	require.NoError(t, err)
	require.Len(t, before, 8)

	_, err = env.market.CreateListing(ctx, newAccount(), env.asset, tokenId, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	_, err = env.market.PurchaseItem(ctx, env.buyer, 9, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, market.ErrItemNotFound)
	_, err = env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, market.ErrInsufficientPayment)

	after, err := env.store.ReadProperty(key)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = env.market.PurchaseItem(ctx, env.buyer, id, decimal.NewFromInt(10))
	require.NoError(t, err)
	after, err = env.store.ReadProperty(key)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
