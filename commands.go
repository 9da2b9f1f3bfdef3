package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lainhathoang/nft-market/api"
	"github.com/lainhathoang/nft-market/market"
	"github.com/lainhathoang/nft-market/nft"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "serve the marketplace HTTP API",
			Action: withNode(serve),
		},
		{
			Name:   "collection",
			Usage:  "create an NFT collection and print its asset id",
			Action: withNode(createCollection),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "creator", Required: true},
				&cli.StringFlag{Name: "name", Value: "DApp NFT"},
				&cli.StringFlag{Name: "symbol", Value: "DAPP"},
			},
		},
		{
			Name:   "mint",
			Usage:  "mint a token, from --uri or from metadata flags",
			Action: withNode(mintToken),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "asset", Required: true},
				&cli.StringFlag{Name: "owner", Required: true},
				&cli.StringFlag{Name: "uri"},
				&cli.StringFlag{Name: "name"},
				&cli.StringFlag{Name: "description"},
				&cli.StringFlag{Name: "image"},
				&cli.StringFlag{Name: "price"},
			},
		},
		{
			Name:   "approve",
			Usage:  "approve an operator, the marketplace by default, for all tokens of owner",
			Action: withNode(approve),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "asset", Required: true},
				&cli.StringFlag{Name: "owner", Required: true},
				&cli.StringFlag{Name: "operator"},
				&cli.BoolFlag{Name: "revoke"},
			},
		},
		{
			Name:   "owner",
			Usage:  "print the owner of a token",
			Action: withNode(ownerOf),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "asset", Required: true},
				&cli.StringFlag{Name: "token", Required: true},
			},
		},
		{
			Name:   "list",
			Usage:  "escrow a token with the marketplace at a price",
			Action: withNode(createListing),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "seller", Required: true},
				&cli.StringFlag{Name: "asset", Required: true},
				&cli.StringFlag{Name: "token", Required: true},
				&cli.StringFlag{Name: "price", Required: true},
			},
		},
		{
			Name:   "buy",
			Usage:  "purchase an item, paying its total price unless --amount is given",
			Action: withNode(purchaseItem),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "buyer", Required: true},
				&cli.Uint64Flag{Name: "item", Required: true},
				&cli.StringFlag{Name: "amount"},
			},
		},
		{
			Name:   "price",
			Usage:  "print the total price of an item, fee included",
			Action: withNode(totalPrice),
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "item", Required: true},
			},
		},
		{
			Name:   "item",
			Usage:  "print an item",
			Action: withNode(getItem),
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "item", Required: true},
			},
		},
		{
			Name:   "items",
			Usage:  "list items in id order",
			Action: withNode(listItems),
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "offset"},
				&cli.IntFlag{Name: "limit", Value: 100},
				&cli.StringFlag{Name: "state", Usage: "listed or sold"},
			},
		},
		{
			Name:   "deposit",
			Usage:  "credit an account of the payment ledger",
			Action: withNode(deposit),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "account", Required: true},
				&cli.StringFlag{Name: "amount", Required: true},
				&cli.StringFlag{Name: "trace"},
			},
		},
		{
			Name:   "balance",
			Usage:  "print the balance of an account",
			Action: withNode(balance),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "account", Required: true},
			},
		},
	}
}

func withNode(action func(*cli.Context, *node) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		n, err := openNode(c)
		if err != nil {
			return err
		}
		defer n.Close()
		return action(c, n)
	}
}

func serve(c *cli.Context, n *node) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(n.market, n.metrics.Handler()).NewHTTPServer(n.conf.HTTP.Listen)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	zap.L().Info("serving marketplace", zap.String("listen", n.conf.HTTP.Listen), zap.String("account", n.market.Account()))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func createCollection(c *cli.Context, n *node) error {
	col, err := n.registry.CreateCollection(c.Context, c.String("creator"), c.String("name"), c.String("symbol"))
	if err != nil {
		return err
	}
	return printJSON(col)
}

func mintToken(c *cli.Context, n *node) error {
	uri := c.String("uri")
	if uri == "" {
		meta := &nft.Metadata{
			Image:       c.String("image"),
			Price:       c.String("price"),
			Name:        c.String("name"),
			Description: c.String("description"),
		}
		if meta.Image == "" || meta.Name == "" {
			return fmt.Errorf("either --uri or --image and --name are required")
		}
		ref, _, err := nft.BuildMetadataRef(meta)
		if err != nil {
			return err
		}
		uri = ref
	}
	tokenId, err := n.registry.Mint(c.Context, c.String("asset"), c.String("owner"), uri)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"asset": c.String("asset"), "token_id": tokenId, "uri": uri})
}

func approve(c *cli.Context, n *node) error {
	operator := c.String("operator")
	if operator == "" {
		operator = n.market.Account()
	}
	return n.registry.SetApprovalForAll(c.Context, c.String("asset"), c.String("owner"), operator, !c.Bool("revoke"))
}

func ownerOf(c *cli.Context, n *node) error {
	owner, err := n.registry.OwnerOf(c.Context, c.String("asset"), c.String("token"))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"owner": owner})
}

func createListing(c *cli.Context, n *node) error {
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return err
	}
	id, err := n.market.CreateListing(c.Context, c.String("seller"), c.String("asset"), c.String("token"), price)
	if err != nil {
		return err
	}
	return printJSON(map[string]uint64{"item_id": id})
}

func purchaseItem(c *cli.Context, n *node) error {
	itemId := c.Uint64("item")
	amount, err := n.market.TotalPrice(c.Context, itemId)
	if err != nil {
		return err
	}
	if c.IsSet("amount") {
		amount, err = decimal.NewFromString(c.String("amount"))
		if err != nil {
			return err
		}
	}
	receipt, err := n.market.PurchaseItem(c.Context, c.String("buyer"), itemId, amount)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func totalPrice(c *cli.Context, n *node) error {
	total, err := n.market.TotalPrice(c.Context, c.Uint64("item"))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"total": total.String()})
}

func getItem(c *cli.Context, n *node) error {
	item, err := n.market.GetItem(c.Context, c.Uint64("item"))
	if err != nil {
		return err
	}
	return printJSON(item)
}

func listItems(c *cli.Context, n *node) error {
	var items []*market.Item
	var err error
	if state := c.String("state"); state != "" {
		items, err = n.market.ListItemsInState(c.Context, state, c.Uint64("offset"), c.Int("limit"))
	} else {
		items, err = n.market.ListItems(c.Context, c.Uint64("offset"), c.Int("limit"))
	}
	if err != nil {
		return err
	}
	return printJSON(items)
}

func deposit(c *cli.Context, n *node) error {
	amount, err := decimal.NewFromString(c.String("amount"))
	if err != nil {
		return err
	}
	trace := c.String("trace")
	if trace == "" {
		trace = uuid.Must(uuid.NewV4()).String()
	}
	err = n.market.Deposit(c.Context, c.String("account"), amount, trace)
	if err != nil {
		return err
	}
	return balance(c, n)
}

func balance(c *cli.Context, n *node) error {
	bal, err := n.market.Balance(c.Context, c.String("account"))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"account": c.String("account"), "balance": bal.String()})
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
