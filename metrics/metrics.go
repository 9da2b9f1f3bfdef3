// Package metrics exports marketplace activity as Prometheus collectors.
// Collector is a market.Notifier, so it only counts committed operations.
package metrics

import (
	"context"
	"net/http"

	"github.com/lainhathoang/nft-market/market"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	listings  *prometheus.CounterVec
	purchases *prometheus.CounterVec
	volume    *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "nft_market"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Listings created, by asset.",
		}, []string{"asset"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchases settled, by asset.",
		}, []string{"asset"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_volume",
			Help:      "Sum of settled item prices, by asset.",
		}, []string{"asset"}),
	}
	c.registry.MustRegister(c.listings, c.purchases, c.volume)
	return c
}

func (c *Collector) OnListingCreated(ctx context.Context, evt *market.ListingCreated) {
	c.listings.WithLabelValues(evt.Asset).Inc()
}

func (c *Collector) OnPurchaseCompleted(ctx context.Context, evt *market.PurchaseCompleted) {
	c.purchases.WithLabelValues(evt.Asset).Inc()
	// float counters are approximate by nature, the exact volume is in the ledger
	price, _ := evt.Price.Float64()
	c.volume.WithLabelValues(evt.Asset).Add(price)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
