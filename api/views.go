package api

import (
	"time"

	"github.com/lainhathoang/nft-market/market"
)

type configView struct {
	Account        string `json:"account"`
	FeeRecipient   string `json:"fee_recipient"`
	FeeBasisPoints int64  `json:"fee_basis_points"`
	ItemCount      uint64 `json:"item_count"`
}

type itemView struct {
	ItemId    uint64    `json:"item_id"`
	Asset     string    `json:"asset"`
	TokenId   string    `json:"token_id"`
	Price     string    `json:"price"`
	Seller    string    `json:"seller"`
	Sold      bool      `json:"sold"`
	Buyer     string    `json:"buyer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type priceView struct {
	ItemId uint64 `json:"item_id"`
	Price  string `json:"price"`
	Fee    string `json:"fee"`
	Total  string `json:"total"`
}

type settlementView struct {
	ItemId  uint64 `json:"item_id"`
	Asset   string `json:"asset"`
	TokenId string `json:"token_id"`
	Seller  string `json:"seller"`
	Buyer   string `json:"buyer"`
	Price   string `json:"price"`
	Fee     string `json:"fee"`
	Total   string `json:"total"`
	TraceId string `json:"trace_id"`
}

type eventView struct {
	Sequence  uint64    `json:"sequence"`
	Type      string    `json:"type"`
	ItemId    uint64    `json:"item_id"`
	Asset     string    `json:"asset"`
	TokenId   string    `json:"token_id"`
	Price     string    `json:"price"`
	Seller    string    `json:"seller"`
	Buyer     string    `json:"buyer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newItemView(item *market.Item) itemView {
	return itemView{
		ItemId:    item.ItemId,
		Asset:     item.Asset,
		TokenId:   item.TokenId,
		Price:     item.Price.String(),
		Seller:    item.Seller,
		Sold:      item.Sold,
		Buyer:     item.Buyer,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func newItemViews(items []*market.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	return views
}

func newSettlementView(s *market.Settlement) settlementView {
	return settlementView{
		ItemId:  s.ItemId,
		Asset:   s.Asset,
		TokenId: s.TokenId,
		Seller:  s.Seller,
		Buyer:   s.Buyer,
		Price:   s.Price.String(),
		Fee:     s.Fee.String(),
		Total:   s.Total.String(),
		TraceId: s.TraceId,
	}
}

func newEventView(e *market.Event) eventView {
	return eventView{
		Sequence:  e.Sequence,
		Type:      e.Type,
		ItemId:    e.ItemId,
		Asset:     e.Asset,
		TokenId:   e.TokenId,
		Price:     e.Price.String(),
		Seller:    e.Seller,
		Buyer:     e.Buyer,
		CreatedAt: e.CreatedAt,
	}
}
