package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Sentinel errors for market source failures.
var (
	ErrSourceUnreachable = errors.New("market source unreachable")
	ErrSourceResponse    = errors.New("market source returned an invalid response")
	ErrSourceTimeout     = errors.New("market source timeout")
)

// Trade types on the P2P board.
const (
	TradeSell = "SELL"
	TradeBuy  = "BUY"
)

const (
	p2pAsset     = "USDT"
	p2pFiat      = "BOB"
	p2pRows      = 20
	p2pUserAgent = "Mozilla/5.0 (compatible; ElasticBot/2.0)"
	maxAttempts  = 3
)

// Ad is one P2P advertisement, reduced to the fields the snapshot uses.
type Ad struct {
	Price      float64
	Available  float64
	Advertiser string
}

// P2PSource lists current advertisements for one trade type.
type P2PSource interface {
	FetchAds(ctx context.Context, tradeType string) ([]Ad, error)
}

// BinanceClient implements P2PSource with the Binance P2P search API.
type BinanceClient struct {
	url     string
	client  *http.Client
	backoff func() backoff.BackOff
}

// NewBinanceClient creates a client for the advertisement search endpoint.
func NewBinanceClient(url string, timeout time.Duration) *BinanceClient {
	return &BinanceClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return backoff.WithMaxRetries(b, maxAttempts-1)
		},
	}
}

type searchRequest struct {
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	MerchantCheck bool     `json:"merchantCheck"`
	Page          int      `json:"page"`
	PayTypes      []string `json:"payTypes"`
	PublisherType *string  `json:"publisherType"`
	Rows          int      `json:"rows"`
	TradeType     string   `json:"tradeType"`
	TransAmount   string   `json:"transAmount"`
}

func (c *BinanceClient) FetchAds(ctx context.Context, tradeType string) ([]Ad, error) {
	body, err := json.Marshal(searchRequest{
		Asset:     p2pAsset,
		Fiat:      p2pFiat,
		Page:      1,
		PayTypes:  []string{},
		Rows:      p2pRows,
		TradeType: tradeType,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	var ads []Ad
	attempt := 0
	op := func() error {
		attempt++
		var err error
		ads, err = c.search(ctx, body, tradeType)
		if err != nil {
			slog.Warn("binance p2p request failed", "trade_type", tradeType, "attempt", attempt, "error", err)
			if errors.Is(err, ErrSourceResponse) {
				return backoff.Permanent(err)
			}
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(c.backoff(), ctx)); err != nil {
		return nil, err
	}
	return ads, nil
}

func (c *BinanceClient) search(ctx context.Context, body []byte, tradeType string) ([]Ad, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p2pUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnreachable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceResponse, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", ErrSourceResponse, err)
	}
	if !sr.Success {
		return nil, fmt.Errorf("%w: success=false (code %s)", ErrSourceResponse, sr.Code)
	}
	return parseAds(sr.Data, tradeType), nil
}

// parseAds keeps ads with a positive price and amount. SELL ads report the
// amount left as surplusAmount; BUY ads report it as tradableQuantity.
func parseAds(items []searchItem, tradeType string) []Ad {
	ads := make([]Ad, 0, len(items))
	for _, it := range items {
		price := parseNumber(it.Adv.Price)
		amount := parseNumber(it.Adv.SurplusAmount)
		if tradeType == TradeBuy {
			amount = parseNumber(it.Adv.TradableQuantity)
		}
		if price <= 0 || amount <= 0 {
			continue
		}
		advertiser := it.Adv.AdvertiserNo
		if advertiser == "" {
			advertiser = it.Advertiser.UserNo
		}
		ads = append(ads, Ad{Price: price, Available: amount, Advertiser: advertiser})
	}
	return ads
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
}

// --- Binance response types ---

type searchResponse struct {
	Code    string       `json:"code"`
	Success bool         `json:"success"`
	Data    []searchItem `json:"data"`
}

type searchItem struct {
	Adv        searchAdv        `json:"adv"`
	Advertiser searchAdvertiser `json:"advertiser"`
}

type searchAdv struct {
	AdvNo            string `json:"advNo"`
	Price            string `json:"price"`
	SurplusAmount    string `json:"surplusAmount"`
	TradableQuantity string `json:"tradableQuantity"`
	AdvertiserNo     string `json:"advertiserNo"`
}

type searchAdvertiser struct {
	UserNo   string `json:"userNo"`
	NickName string `json:"nickName"`
}

// Compile-time check that BinanceClient implements P2PSource.
var _ P2PSource = (*BinanceClient)(nil)
