package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"TradeDesk/internal/domain/models"
	xhttp "TradeDesk/pkg/http"
)

// Client is the REST brokerage client. It is not rate limited itself; all
// calls are expected to be routed through the execution gateway.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *xhttp.Client
}

func NewClient(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type quotePayload struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// GetQuote fetches the latest quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var qp quotePayload
	err := c.do(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/v1/quotes/" + symbol,
		QueryParams: map[string][]string{},
	}, &qp)
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", symbol, err)
	}
	return &models.Quote{
		Symbol:    qp.Symbol,
		Price:     qp.Price,
		Volume:    qp.Volume,
		Timestamp: time.Unix(qp.Timestamp, 0),
	}, nil
}

type accountPayload struct {
	Equity     float64 `json:"equity"`
	Cash       float64 `json:"cash"`
	DailyPnL   float64 `json:"dailyPnl"`
	PeakEquity float64 `json:"peakEquity"`
	Positions  []struct {
		Symbol      string  `json:"symbol"`
		Quantity    float64 `json:"qty"`
		MarketValue float64 `json:"marketValue"`
	} `json:"positions"`
}

// GetAccount fetches the account snapshot.
func (c *Client) GetAccount(ctx context.Context) (*models.Account, error) {
	var ap accountPayload
	err := c.do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v1/account",
	}, &ap)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	acct := &models.Account{
		Equity:     ap.Equity,
		Cash:       ap.Cash,
		DailyPnL:   ap.DailyPnL,
		PeakEquity: ap.PeakEquity,
	}
	for _, p := range ap.Positions {
		acct.Positions = append(acct.Positions, models.Position{
			Symbol:      p.Symbol,
			Quantity:    p.Quantity,
			MarketValue: p.MarketValue,
		})
	}
	return acct, nil
}

type orderPayload struct {
	OrderID     string  `json:"orderId"`
	Symbol      string  `json:"symbol"`
	Status      string  `json:"status"`
	FilledPrice float64 `json:"filledPrice"`
}

// SubmitOrder submits an order and returns the brokerage acknowledgement.
func (c *Client) SubmitOrder(ctx context.Context, o *models.Order) (*models.OrderReceipt, error) {
	if o.Type == "" {
		o.Type = "market"
	}
	var op orderPayload
	err := c.do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/v1/orders",
		Body:   o,
	}, &op)
	if err != nil {
		return nil, fmt.Errorf("submit order %s %s: %w", o.Side, o.Symbol, err)
	}
	return &models.OrderReceipt{
		OrderID:     op.OrderID,
		Symbol:      op.Symbol,
		Status:      op.Status,
		FilledPrice: op.FilledPrice,
		SubmittedAt: time.Now(),
	}, nil
}

// do sends an authenticated request and decodes the JSON response,
// translating provider throttling into ErrRateLimited.
func (c *Client) do(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	if opts.Headers == nil {
		opts.Headers = map[string]string{}
	}
	opts.Headers["APCA-API-KEY-ID"] = c.apiKey
	opts.Headers["APCA-API-SECRET-KEY"] = c.apiSecret

	resp, err := c.client.SendRequest(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
