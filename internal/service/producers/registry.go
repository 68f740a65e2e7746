package producers

import (
	"time"

	"TradeDesk/internal/service/consensus"
	"TradeDesk/pkg/config"
)

// Build maps strategy configs onto concrete producers. Known ids get the
// built-in implementations; anything else is assumed to live behind the
// remote model service.
func Build(cfgs []config.StrategyConfig, apiURL string, apiTimeout time.Duration) []consensus.Producer {
	out := make([]consensus.Producer, 0, len(cfgs))
	for _, sc := range cfgs {
		var impl consensus.Producer
		impl.Config = sc
		switch sc.ID {
		case "momentum":
			impl.Impl = NewMomentum(sc.ID)
		case "mean-reversion", "meanrev":
			impl.Impl = NewMeanReversion(sc.ID)
		default:
			impl.Impl = NewRemote(sc.ID, apiURL, apiTimeout)
		}
		out = append(out, impl)
	}
	return out
}
