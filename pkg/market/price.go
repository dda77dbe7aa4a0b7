// Package market answers spot-price lookups with a fallback chain:
// Binance, then Coinpaprika, then CoinGecko when a key is configured.
// The chain exists because the assistant polls prices constantly and a
// single rate-limited source used to take the whole feature down.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const httpTimeout = 30 * time.Second

var coinpaprikaIDs = map[string]string{
	"BTC": "btc-bitcoin", "ETH": "eth-ethereum", "BNB": "bnb-binance-coin",
	"XRP": "xrp-xrp", "SOL": "sol-solana", "ADA": "ada-cardano",
	"DOGE": "doge-dogecoin", "AVAX": "avax-avalanche", "DOT": "dot-polkadot",
	"MATIC": "matic-polygon", "TRX": "trx-tron", "LINK": "link-chainlink",
	"ATOM": "atom-cosmos", "OP": "op-optimism", "ARB": "arb-arbitrum",
}

var coingeckoIDs = map[string]string{
	"BTC": "bitcoin", "ETH": "ethereum", "BNB": "binancecoin",
	"XRP": "ripple", "SOL": "solana",
}

// Quote is a successful price lookup. Source names which backend answered.
type Quote struct {
	Source string  `json:"source"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// LookupError carries the per-source failures so the caller can report
// why no source answered.
type LookupError struct {
	Symbol  string
	Reasons map[string]string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("price unavailable for %s", e.Symbol)
}

type Service struct {
	coingeckoAPIKey string
	binanceBase     string
	coinpaprikaBase string
	coingeckoBase   string
	http            *http.Client
}

type Option func(*Service)

// WithBaseURLs overrides the three backends. Tests point them at
// httptest servers; empty strings keep the default.
func WithBaseURLs(binance, coinpaprika, coingecko string) Option {
	return func(s *Service) {
		if binance != "" {
			s.binanceBase = binance
		}
		if coinpaprika != "" {
			s.coinpaprikaBase = coinpaprika
		}
		if coingecko != "" {
			s.coingeckoBase = coingecko
		}
	}
}

func NewService(coingeckoAPIKey string, opts ...Option) *Service {
	s := &Service{
		coingeckoAPIKey: coingeckoAPIKey,
		binanceBase:     "https://api.binance.com",
		coinpaprikaBase: "https://api.coinpaprika.com",
		coingeckoBase:   "https://api.coingecko.com",
		http:            &http.Client{Timeout: httpTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// splitSymbol normalizes "BTC/USDT", "btcusdt", "BTCUSD" to the base
// asset. Everything quotes against USD.
func splitSymbol(symbol string) string {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	switch {
	case strings.HasSuffix(s, "USDT"), strings.HasSuffix(s, "USDC"):
		return s[:len(s)-4]
	case strings.HasSuffix(s, "USD"):
		return s[:len(s)-3]
	default:
		return s
	}
}

// Price resolves symbol through the fallback chain. When every source
// fails it returns a *LookupError with the per-source reasons; callers
// turn that into a controlled response, never a 500.
func (s *Service) Price(ctx context.Context, symbol string) (*Quote, error) {
	base := splitSymbol(symbol)
	pair := base + "USDT"
	reasons := make(map[string]string)

	if quote, err := s.binancePrice(ctx, pair); err == nil {
		return quote, nil
	} else {
		reasons["binance"] = err.Error()
	}

	if pid, ok := coinpaprikaIDs[base]; ok {
		if quote, err := s.coinpaprikaPrice(ctx, pid, base); err == nil {
			return quote, nil
		} else {
			reasons["coinpaprika"] = err.Error()
		}
	} else {
		reasons["coinpaprika"] = fmt.Sprintf("no id mapping for %s", base)
	}

	if s.coingeckoAPIKey != "" {
		if cid, ok := coingeckoIDs[base]; ok {
			if quote, err := s.coingeckoPrice(ctx, cid, base); err == nil {
				return quote, nil
			} else {
				reasons["coingecko"] = err.Error()
			}
		}
	}

	return nil, &LookupError{Symbol: symbol, Reasons: reasons}
}

func (s *Service) binancePrice(ctx context.Context, pair string) (*Quote, error) {
	var data struct {
		Price string `json:"price"`
	}
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", s.binanceBase, pair)
	if err := s.getJSON(ctx, url, nil, &data); err != nil {
		return nil, err
	}
	price, err := strconv.ParseFloat(data.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable price %q", data.Price)
	}
	if !isFinite(price) {
		return nil, fmt.Errorf("non-finite price %q", data.Price)
	}
	return &Quote{Source: "binance", Symbol: pair, Price: price}, nil
}

func (s *Service) coinpaprikaPrice(ctx context.Context, paprikaID, base string) (*Quote, error) {
	var data struct {
		Quotes struct {
			USD struct {
				Price float64 `json:"price"`
			} `json:"USD"`
		} `json:"quotes"`
	}
	url := fmt.Sprintf("%s/v1/tickers/%s", s.coinpaprikaBase, paprikaID)
	if err := s.getJSON(ctx, url, nil, &data); err != nil {
		return nil, err
	}
	return &Quote{Source: "coinpaprika", Symbol: base + "USD", Price: data.Quotes.USD.Price}, nil
}

func (s *Service) coingeckoPrice(ctx context.Context, geckoID, base string) (*Quote, error) {
	var data map[string]map[string]float64
	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", s.coingeckoBase, geckoID)
	headers := map[string]string{
		"accept":       "application/json",
		"x-cg-api-key": s.coingeckoAPIKey,
	}
	if err := s.getJSON(ctx, url, headers, &data); err != nil {
		return nil, err
	}
	usd, ok := data[geckoID]["usd"]
	if !ok {
		return nil, fmt.Errorf("no usd quote for %s", geckoID)
	}
	return &Quote{Source: "coingecko", Symbol: base + "USD", Price: usd}, nil
}

func (s *Service) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
