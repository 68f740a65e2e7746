package models

// Requests for the bot control surface. Defined in domain for consistency and reuse.

type StartRequest struct {
	Config *BotConfiguration `json:"config"`
}

type AssessRequest struct {
	Symbol         string  `json:"symbol" validate:"required"`
	Action         string  `json:"action" default:"BUY" validate:"oneof=BUY SELL"`
	Quantity       float64 `json:"quantity" validate:"gte=0"`
	EntryPrice     float64 `json:"entryPrice" validate:"gt=0"`
	StopLoss       float64 `json:"stopLoss" validate:"gte=0"`
	TargetPrice    float64 `json:"targetPrice" validate:"gte=0"`
	AccountBalance float64 `json:"accountBalance" validate:"gt=0"`
	Confidence     float64 `json:"confidence" default:"1" validate:"gte=0,lte=1"`
}

type GatewayActionRequest struct {
	Action   string `json:"action" validate:"required,oneof=clear throttle stats"`
	Duration int64  `json:"duration" validate:"gte=0"` // milliseconds, throttle only
}
