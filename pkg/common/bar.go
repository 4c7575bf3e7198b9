package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var ErrInvalidBar = errors.New("invalid bar")

// Bar is a single OHLCV aggregate over a fixed period.
type Bar struct {
	Open   fixed.Point `json:"open"`
	High   fixed.Point `json:"high"`
	Low    fixed.Point `json:"low"`
	Close  fixed.Point `json:"close"`
	Volume fixed.Point `json:"volume"`
	Period time.Duration `json:"period"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

// Validate checks the OHLC envelope. High caps the range, low floors it,
// volume is never negative.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidBar)
	}
	if b.Period <= 0 {
		return fmt.Errorf("%w: non-positive period", ErrInvalidBar)
	}
	if b.High.Lt(b.Open) || b.High.Lt(b.Close) || b.High.Lt(b.Low) {
		return fmt.Errorf("%w: high %s below open/low/close", ErrInvalidBar, b.High)
	}
	if b.Low.Gt(b.Open) || b.Low.Gt(b.Close) {
		return fmt.Errorf("%w: low %s above open/close", ErrInvalidBar, b.Low)
	}
	if b.Volume.IsNeg() {
		return fmt.Errorf("%w: negative volume %s", ErrInvalidBar, b.Volume)
	}
	return nil
}
