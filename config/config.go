package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/lainhathoang/nft-market/market"
	"github.com/pelletier/go-toml"
)

type Configuration struct {
	Market MarketConfig `toml:"market"`
	Store  StoreConfig  `toml:"store"`
	HTTP   HTTPConfig   `toml:"http"`
	Log    LogConfig    `toml:"log"`
}

type MarketConfig struct {
	Account        string `toml:"account"`
	FeeRecipient   string `toml:"fee-recipient"`
	FeeBasisPoints int64  `toml:"fee-basis-points"`
}

type StoreConfig struct {
	Dir string `toml:"dir"`
}

type HTTPConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Path  string `toml:"path"`
	Debug bool   `toml:"debug"`
}

// Setup reads the TOML file at path, then lets a .env file in the working
// directory and the NFT_MARKET_* environment override it.
func Setup(path string) (*Configuration, error) {
	conf := &Configuration{
		Market: MarketConfig{FeeBasisPoints: 100},
		Store:  StoreConfig{Dir: "~/.nft-market/data"},
		HTTP:   HTTPConfig{Listen: ":7000"},
	}
	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		err = toml.Unmarshal(f, conf)
		if err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load(".env")
	conf.Market.Account = getString("NFT_MARKET_ACCOUNT", conf.Market.Account)
	conf.Market.FeeRecipient = getString("NFT_MARKET_FEE_RECIPIENT", conf.Market.FeeRecipient)
	conf.Market.FeeBasisPoints = getInt64("NFT_MARKET_FEE_BASIS_POINTS", conf.Market.FeeBasisPoints)
	conf.Store.Dir = getString("NFT_MARKET_STORE_DIR", conf.Store.Dir)
	conf.HTTP.Listen = getString("NFT_MARKET_HTTP_LISTEN", conf.HTTP.Listen)
	conf.Log.Path = getString("NFT_MARKET_LOG_PATH", conf.Log.Path)
	conf.Log.Debug = getBool("NFT_MARKET_DEBUG", conf.Log.Debug)
	return conf, nil
}

func (c *Configuration) MarketConfiguration() *market.Configuration {
	return &market.Configuration{
		Account:        c.Market.Account,
		FeeRecipient:   c.Market.FeeRecipient,
		FeeBasisPoints: c.Market.FeeBasisPoints,
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	val, err := strconv.ParseInt(getString(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return val
}

func getBool(key string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(getString(key, "")); err == nil {
		return val
	}
	return defaultValue
}
