package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lainhathoang/nft-market/market"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	HeaderAccountId = "X-Account-Id"

	defaultListLimit = 100
)

type Server struct {
	market  *market.Marketplace
	metrics http.Handler

	// price quotes never change once an item exists
	quotes *cache.Cache
}

func NewServer(m *market.Marketplace, metrics http.Handler) Server {
	return Server{market: m, metrics: metrics, quotes: cache.New(5*time.Minute, 10*time.Minute)}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/config", s.handleConfig).Methods("GET")
	r.HandleFunc("/items", s.handleListItems).Methods("GET")
	r.HandleFunc("/items", s.handleCreateListing).Methods("POST")
	r.HandleFunc("/items/{itemId:[0-9]+}", s.handleGetItem).Methods("GET")
	r.HandleFunc("/items/{itemId:[0-9]+}/price", s.handleTotalPrice).Methods("GET")
	r.HandleFunc("/items/{itemId:[0-9]+}/purchase", s.handlePurchaseItem).Methods("POST")
	r.HandleFunc("/accounts/{accountId}/listings", s.handleListings).Methods("GET")
	r.HandleFunc("/accounts/{accountId}/purchases", s.handlePurchases).Methods("GET")
	r.HandleFunc("/accounts/{accountId}/balance", s.handleBalance).Methods("GET")
	r.HandleFunc("/events", s.handleListEvents).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, http.StatusNotFound, errors.New("not found"))
	})
	return r
}

// NewHTTPServer wraps the router with the transport timeouts; the
// marketplace itself has none.
func (s Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func (s Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	count, err := s.market.ItemCount(r.Context())
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, configView{
		Account:        s.market.Account(),
		FeeRecipient:   s.market.FeeRecipient(),
		FeeBasisPoints: s.market.FeeRate(),
		ItemCount:      count,
	})
}

func (s Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)
	var items []*market.Item
	var err error
	if state := r.URL.Query().Get("state"); state != "" {
		items, err = s.market.ListItemsInState(r.Context(), state, offset, queryLimit(r))
	} else {
		items, err = s.market.ListItems(r.Context(), offset, queryLimit(r))
	}
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, newItemViews(items))
}

func (s Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.market.GetItem(r.Context(), itemIdVar(r))
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, newItemView(item))
}

func (s Server) handleTotalPrice(w http.ResponseWriter, r *http.Request) {
	id := itemIdVar(r)
	key := strconv.FormatUint(id, 10)
	if cached, found := s.quotes.Get(key); found {
		render(w, http.StatusOK, cached.(priceView))
		return
	}
	item, err := s.market.GetItem(r.Context(), id)
	if err != nil {
		renderMarketError(w, err)
		return
	}
	fees := s.market.FeePolicy()
	view := priceView{
		ItemId: item.ItemId,
		Price:  item.Price.String(),
		Fee:    fees.Fee(item.Price).String(),
		Total:  fees.Total(item.Price).String(),
	}
	s.quotes.Set(key, view, cache.DefaultExpiration)
	render(w, http.StatusOK, view)
}

func (s Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset   string `json:"asset"`
		TokenId string `json:"token_id"`
		Price   string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		renderMarketError(w, market.ErrInvalidPrice)
		return
	}
	id, err := s.market.CreateListing(r.Context(), r.Header.Get(HeaderAccountId), req.Asset, req.TokenId, price)
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusCreated, map[string]uint64{"item_id": id})
}

func (s Server) handlePurchaseItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	receipt, err := s.market.PurchaseItem(r.Context(), r.Header.Get(HeaderAccountId), itemIdVar(r), amount)
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, newSettlementView(receipt))
}

func (s Server) handleListings(w http.ResponseWriter, r *http.Request) {
	items, err := s.market.ListItemsBySeller(r.Context(), mux.Vars(r)["accountId"], queryLimit(r))
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, newItemViews(items))
}

func (s Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	items, err := s.market.ListItemsByBuyer(r.Context(), mux.Vars(r)["accountId"], queryLimit(r))
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, newItemViews(items))
}

func (s Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["accountId"]
	bal, err := s.market.Balance(r.Context(), account)
	if err != nil {
		renderMarketError(w, err)
		return
	}
	render(w, http.StatusOK, map[string]string{"account": account, "balance": bal.String()})
}

func (s Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)
	events, err := s.market.ListEvents(r.Context(), offset, queryLimit(r))
	if err != nil {
		renderMarketError(w, err)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	render(w, http.StatusOK, views)
}

func itemIdVar(r *http.Request) uint64 {
	id, _ := strconv.ParseUint(mux.Vars(r)["itemId"], 10, 64)
	return id
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, market.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrAlreadySold):
		return http.StatusConflict
	case errors.Is(err, market.ErrInsufficientPayment), errors.Is(err, market.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, market.ErrTransferFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func renderMarketError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		zap.L().With(zap.Error(err)).Error("marketplace request failed")
	}
	renderError(w, status, err)
}

func renderError(w http.ResponseWriter, status int, err error) {
	render(w, status, map[string]string{"error": err.Error()})
}

func render(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().With(zap.Error(err)).Warn("failed to write response")
	}
}
