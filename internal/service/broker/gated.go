package broker

import (
	"context"

	"TradeDesk/internal/domain/models"
	domsvc "TradeDesk/internal/domain/service"
	"TradeDesk/internal/service/gateway"
)

// Gated routes every brokerage call through the rate-limited execution
// gateway so callers can never bypass the request budget.
type Gated struct {
	raw *Client
	gw  *gateway.Gateway
}

func NewGated(raw *Client, gw *gateway.Gateway) *Gated {
	return &Gated{raw: raw, gw: gw}
}

func (g *Gated) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	v, err := g.gw.Submit(ctx, "quote", func(ctx context.Context) (interface{}, error) {
		return g.raw.GetQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Quote), nil
}

func (g *Gated) GetAccount(ctx context.Context) (*models.Account, error) {
	v, err := g.gw.Submit(ctx, "account", func(ctx context.Context) (interface{}, error) {
		return g.raw.GetAccount(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Account), nil
}

func (g *Gated) SubmitOrder(ctx context.Context, o *models.Order) (*models.OrderReceipt, error) {
	v, err := g.gw.Submit(ctx, "order", func(ctx context.Context) (interface{}, error) {
		return g.raw.SubmitOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.OrderReceipt), nil
}

var _ domsvc.Broker = (*Gated)(nil)
