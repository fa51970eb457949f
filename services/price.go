package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"clash-bot/config"
	"clash-bot/utils"

	"github.com/sirupsen/logrus"
)

// Asset is one price bot's feed. CoinGeckoID is empty for the DexScreener-priced token.
type Asset struct {
	Symbol      string
	CoinGeckoID string
}

// Quote is a USD price and its 24h change in percent.
type Quote struct {
	Price     float64
	Change24h float64
	UpdatedAt time.Time
}

var DefaultAssets = []Asset{
	{Symbol: "BTC", CoinGeckoID: "bitcoin"},
	{Symbol: "ETH", CoinGeckoID: "ethereum"},
	{Symbol: "SOL", CoinGeckoID: "solana"},
	{Symbol: "LINK", CoinGeckoID: "chainlink"},
	{Symbol: "HYPE", CoinGeckoID: "hyperliquid"},
	{Symbol: "CLASH"},
}

// PriceService fetches quotes and keeps the last good one per symbol.
type PriceService struct {
	cfg    config.PriceConfig
	assets []Asset
	http   *http.Client
	logger *logrus.Logger

	mu    sync.RWMutex
	cache map[string]Quote
}

func NewPriceService(cfg config.PriceConfig, assets []Asset, client *http.Client, logger *logrus.Logger) *PriceService {
	if client == nil {
		client = utils.NewHTTPClient(15 * time.Second)
	}
	return &PriceService{cfg: cfg, assets: assets, http: client, logger: logger, cache: make(map[string]Quote)}
}

// Cached returns the last quote seen for symbol.
func (s *PriceService) Cached(symbol string) (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.cache[strings.ToUpper(symbol)]
	return q, ok
}

func (s *PriceService) store(symbol string, q Quote) {
	s.mu.Lock()
	s.cache[strings.ToUpper(symbol)] = q
	s.mu.Unlock()
}

func (s *PriceService) snapshot() map[string]Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Quote, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

// FetchAll refreshes every asset, CoinGecko ones in a single request. A failed
// source leaves its symbols at their cached values.
func (s *PriceService) FetchAll(ctx context.Context) map[string]Quote {
	var ids []string
	bySymbol := make(map[string]string)
	for _, a := range s.assets {
		if a.CoinGeckoID != "" {
			ids = append(ids, a.CoinGeckoID)
			bySymbol[a.CoinGeckoID] = a.Symbol
		}
	}

	if len(ids) > 0 {
		quotes, err := s.fetchCoinGecko(ctx, ids)
		if err != nil {
			s.logger.WithError(err).Warn("[Prices] coingecko fetch failed, serving cache")
		}
		for id, q := range quotes {
			s.store(bySymbol[id], q)
		}
	}

	for _, a := range s.assets {
		if a.CoinGeckoID != "" {
			continue
		}
		q, err := s.fetchDexScreener(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", a.Symbol).Warn("[Prices] dexscreener fetch failed, serving cache")
			continue
		}
		s.store(a.Symbol, q)
	}
	return s.snapshot()
}

func (s *PriceService) getJSON(ctx context.Context, endpoint, what string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	defer utils.DrainAndClose(resp)
	if resp.StatusCode != http.StatusOK {
		return utils.StatusError(resp, what)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *PriceService) fetchCoinGecko(ctx context.Context, ids []string) (map[string]Quote, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	var body map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}
	if err := s.getJSON(ctx, s.cfg.CoinGeckoURL+"/simple/price?"+q.Encode(), "coingecko", &body); err != nil {
		return nil, err
	}

	now := time.Now()
	out := make(map[string]Quote, len(body))
	for _, id := range ids {
		p, ok := body[id]
		if !ok {
			s.logger.WithField("coingecko_id", id).Warn("[Prices] no price data")
			continue
		}
		out[id] = Quote{Price: p.USD, Change24h: p.Change24h, UpdatedAt: now}
	}
	return out, nil
}

func (s *PriceService) fetchDexScreener(ctx context.Context) (Quote, error) {
	if s.cfg.ClashChain == "" || s.cfg.ClashPair == "" {
		return Quote{}, errors.New("dexscreener pair not configured")
	}
	var body struct {
		Pairs []struct {
			PriceUSD    string `json:"priceUsd"`
			PriceChange struct {
				H24 float64 `json:"h24"`
			} `json:"priceChange"`
		} `json:"pairs"`
	}
	endpoint := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", s.cfg.DexScreenerURL, s.cfg.ClashChain, s.cfg.ClashPair)
	if err := s.getJSON(ctx, endpoint, "dexscreener", &body); err != nil {
		return Quote{}, err
	}
	if len(body.Pairs) == 0 {
		return Quote{}, errors.New("dexscreener: pair not found")
	}
	price, err := strconv.ParseFloat(body.Pairs[0].PriceUSD, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("dexscreener price %q: %w", body.Pairs[0].PriceUSD, err)
	}
	return Quote{Price: price, Change24h: body.Pairs[0].PriceChange.H24, UpdatedAt: time.Now()}, nil
}

// Nickname is the price bot's display name, e.g. "BTC $67,123 (↗)".
func Nickname(symbol string, q Quote) string {
	return fmt.Sprintf("%s $%s (%s)", strings.ToUpper(symbol), utils.FormatPrice(q.Price, symbol), utils.DirectionArrow(q.Change24h))
}

// WatchStatus is the price bot's activity line, e.g. "24h: +1.23%".
func WatchStatus(q Quote) string {
	return "24h: " + utils.FormatPercent(q.Change24h)
}
