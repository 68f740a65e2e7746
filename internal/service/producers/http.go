package producers

import (
	"context"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	domsvc "TradeDesk/internal/domain/service"
	xhttp "TradeDesk/pkg/http"
)

// Remote queries an external model service over HTTP for a trade opinion.
// The service's internals (ML, sentiment, anything) are opaque; only the
// request/response contract matters here.
type Remote struct {
	id      string
	baseURL string
	client  *xhttp.Client
}

func NewRemote(id, baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Remote{
		id:      id,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (r *Remote) ID() string { return r.id }

type evaluateRequest struct {
	StrategyID string    `json:"strategyId"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	History    []float64 `json:"history"`
}

type evaluateResponse struct {
	Action      string  `json:"action"`
	Confidence  float64 `json:"confidence"`
	Performance *struct {
		WinRate     float64 `json:"winRate"`
		TotalTrades int     `json:"totalTrades"`
		TotalPnL    float64 `json:"totalPnL"`
	} `json:"performance"`
}

func (r *Remote) Evaluate(ctx context.Context, symbol string, md *models.MarketData) (*models.StrategySignal, error) {
	if r.baseURL == "" {
		return nil, fmt.Errorf("producer %s: no endpoint configured", r.id)
	}

	req := evaluateRequest{StrategyID: r.id, Symbol: symbol}
	if md != nil {
		req.Price = md.Quote.Price
		req.History = md.History
	}

	var er evaluateResponse
	if err := r.postJSONWithRetry(ctx, "/evaluate", req, &er, 3); err != nil {
		return nil, fmt.Errorf("producer %s: %w", r.id, err)
	}

	action := models.Action(er.Action)
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	default:
		return nil, fmt.Errorf("producer %s: invalid action %q", r.id, er.Action)
	}

	s := &models.StrategySignal{
		StrategyID: r.id,
		Symbol:     symbol,
		Action:     action,
		Confidence: er.Confidence,
	}
	if er.Performance != nil {
		s.Performance = &models.PerformanceSnapshot{
			WinRate:     er.Performance.WinRate,
			TotalTrades: er.Performance.TotalTrades,
			TotalPnL:    er.Performance.TotalPnL,
		}
	}
	return s, nil
}

// postJSONWithRetry posts JSON with up to `attempts` retries for transient errors.
func (r *Remote) postJSONWithRetry(ctx context.Context, path string, payload, dest interface{}, attempts int) error {
	var err error
	for i := 1; i <= attempts; i++ {
		err = r.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    r.baseURL + path,
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
			Body: payload,
		}, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

var _ domsvc.StrategyProducer = (*Remote)(nil)
