package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/lainhathoang/nft-market/config"
	"github.com/lainhathoang/nft-market/logging"
	"github.com/lainhathoang/nft-market/market"
	"github.com/lainhathoang/nft-market/metrics"
	"github.com/lainhathoang/nft-market/nft"
	"github.com/lainhathoang/nft-market/store"
	"github.com/urfave/cli/v2"
)

const defaultConfigPath = "~/.nft-market/config.toml"

func main() {
	app := &cli.App{
		Name:  "nft-market",
		Usage: "escrowed NFT marketplace with atomic settlement",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: defaultConfigPath, Usage: "configuration file path"},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "database directory path, overrides the configuration"},
		},
		Commands: commands(),
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type node struct {
	conf     *config.Configuration
	store    *store.BadgerStore
	registry *nft.Registry
	market   *market.Marketplace
	metrics  *metrics.Collector
	cancel   context.CancelFunc
	closeLog func()
}

func openNode(c *cli.Context) (*node, error) {
	cp := expandPath(c.String("config"))
	if !c.IsSet("config") {
		if _, err := os.Stat(cp); os.IsNotExist(err) {
			cp = ""
		}
	}
	conf, err := config.Setup(cp)
	if err != nil {
		return nil, err
	}
	if c.IsSet("dir") {
		conf.Store.Dir = c.String("dir")
	}
	conf.Store.Dir = expandPath(conf.Store.Dir)

	closeLog, err := logging.Setup(conf.Log.Path, conf.Log.Debug)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(c.Context)
	db, err := store.OpenBadger(ctx, conf.Store.Dir)
	if err != nil {
		cancel()
		closeLog()
		return nil, err
	}

	mc := conf.MarketConfiguration()
	registry := nft.NewRegistry(db)
	m, err := market.NewMarketplace(db, nft.NewCustodian(registry, mc.Account), mc)
	if err != nil {
		cancel()
		db.Close()
		closeLog()
		return nil, err
	}
	collector := metrics.NewCollector("")
	m.AddNotifier(collector)

	return &node{
		conf:     conf,
		store:    db,
		registry: registry,
		market:   m,
		metrics:  collector,
		cancel:   cancel,
		closeLog: closeLog,
	}, nil
}

func (n *node) Close() {
	n.cancel()
	n.store.Close()
	n.closeLog()
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, p[2:])
		}
	}
	return p
}
