package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeDesk/internal/domain/models"
	domsvc "TradeDesk/internal/domain/service"
	"TradeDesk/pkg/config"
	xlogger "TradeDesk/pkg/logger"
)

// tieBreak is the fixed precedence used when vote counts or weighted masses
// tie: the conservative action wins.
var tieBreak = []models.Action{models.ActionHold, models.ActionSell, models.ActionBuy}

// Producer pairs a configured strategy entry with its implementation.
type Producer struct {
	Config config.StrategyConfig
	Impl   domsvc.StrategyProducer
}

// Engine reconciles the opinions of all enabled strategy producers into one
// ConsensusResult per symbol. It never decides whether to trade.
type Engine struct {
	producers []Producer
	timeout   time.Duration
	log       *xlogger.Logger
}

func NewEngine(producers []Producer, timeout time.Duration, log *xlogger.Logger) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{producers: producers, timeout: timeout, log: log}
}

// Evaluate queries every enabled producer for the symbol. Producers that
// fail or time out are excluded from the vote for this scan, not retried.
func (e *Engine) Evaluate(ctx context.Context, symbol string, md *models.MarketData) (*models.ConsensusResult, error) {
	enabled := make([]Producer, 0, len(e.producers))
	for _, p := range e.producers {
		if p.Config.Enabled {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("consensus: no enabled producers")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type item struct {
		id     string
		signal *models.StrategySignal
		err    error
	}
	ch := make(chan item, len(enabled))
	var wg sync.WaitGroup

	for _, p := range enabled {
		wg.Add(1)
		go func(p Producer) {
			defer wg.Done()
			s, err := p.Impl.Evaluate(ctx, symbol, md)
			ch <- item{id: p.Config.ID, signal: s, err: err}
		}(p)
	}

	go func() { wg.Wait(); close(ch) }()

	res := &models.ConsensusResult{Symbol: symbol, Timestamp: time.Now()}
	for it := range ch {
		if it.err != nil || it.signal == nil {
			res.Excluded = append(res.Excluded, it.id)
			if e.log != nil {
				e.log.Warn("producer excluded from vote",
					xlogger.String("strategy", it.id),
					xlogger.String("symbol", symbol),
					xlogger.Error(it.err))
			}
			continue
		}
		res.Signals = append(res.Signals, *it.signal)
	}

	if len(res.Signals) == 0 {
		return nil, fmt.Errorf("consensus %s: all producers failed", symbol)
	}

	e.tally(res)
	e.weigh(res)
	return res, nil
}

// tally computes the majority action and agreement ratio.
func (e *Engine) tally(res *models.ConsensusResult) {
	counts := map[models.Action]int{}
	for _, s := range res.Signals {
		counts[s.Action]++
		switch s.Action {
		case models.ActionBuy:
			res.Votes.Buy++
		case models.ActionSell:
			res.Votes.Sell++
		default:
			res.Votes.Hold++
		}
	}

	best := tieBreak[0]
	for _, a := range tieBreak {
		if counts[a] > counts[best] {
			best = a
		}
	}
	res.MajorityAction = best
	res.AgreementRatio = float64(counts[best]) / float64(len(res.Signals))
}

// weigh computes the performance-weighted recommendation. Each strategy
// contributes weight × perfFactor(winRate); the recommendation's action is
// the weighted argmax and its confidence the normalized weighted sum.
func (e *Engine) weigh(res *models.ConsensusResult) {
	weights := e.configWeights()
	mass := map[models.Action]float64{}
	var total float64
	for _, s := range res.Signals {
		w := weights[s.StrategyID]
		if w == 0 {
			w = 1
		}
		w *= perfFactor(s.Performance)
		mass[s.Action] += w * clamp01(s.Confidence)
		total += w
	}

	best := tieBreak[0]
	for _, a := range tieBreak {
		if mass[a] > mass[best] {
			best = a
		}
	}

	conf := 0.0
	if total > 0 {
		conf = mass[best] / total
	}
	res.Weighted = models.WeightedSignal{
		Action:     best,
		Confidence: clamp01(conf),
		Reasoning: fmt.Sprintf("%d of %d producers favor %s (agreement %.0f%%, weighted %.2f)",
			votesFor(res, res.MajorityAction), len(res.Signals), res.MajorityAction,
			res.AgreementRatio*100, conf),
	}
}

func (e *Engine) configWeights() map[string]float64 {
	m := make(map[string]float64, len(e.producers))
	for _, p := range e.producers {
		m[p.Config.ID] = p.Config.Weight
	}
	return m
}

// perfFactor maps a win rate into [0.5, 1.5]; no history is neutral.
func perfFactor(p *models.PerformanceSnapshot) float64 {
	if p == nil || p.TotalTrades == 0 {
		return 1.0
	}
	f := 0.5 + clamp01(p.WinRate)
	if f < 0.5 {
		return 0.5
	}
	if f > 1.5 {
		return 1.5
	}
	return f
}

func votesFor(res *models.ConsensusResult, a models.Action) int {
	switch a {
	case models.ActionBuy:
		return res.Votes.Buy
	case models.ActionSell:
		return res.Votes.Sell
	default:
		return res.Votes.Hold
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
