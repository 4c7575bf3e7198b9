package live

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const (
	feedComponentName = "datasource.live.feed"
	tickChanCapacity  = 1024
)

// wireTick is the json frame pushed by the feed server.
type wireTick struct {
	Symbol string      `json:"symbol"`
	Price  fixed.Point `json:"price"`
	Volume fixed.Point `json:"volume"`
	Side   string      `json:"side"`
	Venue  string      `json:"venue"`
	Time   int64       `json:"ts"` // unix milliseconds
}

type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// Feed streams ticks from a websocket endpoint for paper trading runs.
type Feed struct {
	url     string
	symbols []string
	logger  *zap.Logger

	conn *websocket.Conn
}

func NewFeed(url string, symbols []string, logger *zap.Logger) *Feed {
	return &Feed{
		url:     url,
		symbols: symbols,
		logger:  logger,
	}
}

func (f *Feed) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", f.url, err)
	}
	f.conn = conn

	if err := conn.WriteJSON(subscribeRequest{Op: "subscribe", Symbols: f.symbols}); err != nil {
		_ = conn.Close()
		f.conn = nil
		return fmt.Errorf("subscribing: %w", err)
	}

	f.logger.Info("feed connected",
		zap.String("url", f.url),
		zap.Strings("symbols", f.symbols))
	return nil
}

func (f *Feed) Close() {
	if f.conn != nil {
		_ = f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = f.conn.Close()
	}
}

// Stream reads frames until the connection drops or the context ends.
// The returned channel is closed when the stream terminates. A slow
// consumer drops ticks rather than stalling the read loop.
func (f *Feed) Stream(ctx context.Context) <-chan common.Tick {
	ticks := make(chan common.Tick, tickChanCapacity)

	go func() {
		defer close(ticks)
		for {
			if ctx.Err() != nil {
				return
			}

			_, message, err := f.conn.ReadMessage()
			if err != nil {
				f.logger.Warn("cannot read data", zap.Error(err))
				return
			}

			var frame wireTick
			if err := json.Unmarshal(message, &frame); err != nil {
				f.logger.Warn("unmarshal failed",
					zap.ByteString("raw", message),
					zap.Error(err))
				continue
			}

			tick, err := frame.toTick()
			if err != nil {
				f.logger.Warn("invalid tick frame",
					zap.ByteString("raw", message),
					zap.Error(err))
				continue
			}

			select {
			case ticks <- tick:
			default:
				f.logger.Warn("tick consumer is slow, dropping",
					zap.String("symbol", tick.Symbol))
			}
		}
	}()

	return ticks
}

func (w wireTick) toTick() (common.Tick, error) {
	tick := common.Tick{
		Price:       w.Price,
		Volume:      w.Volume,
		Venue:       w.Venue,
		Source:      feedComponentName,
		Symbol:      w.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.UnixMilli(w.Time).UTC(),
	}

	switch strings.ToLower(w.Side) {
	case "buy":
		tick.Side = common.TickSideBuy
	case "sell":
		tick.Side = common.TickSideSell
	case "":
		tick.Side = common.TickSideUnknown
	default:
		return common.Tick{}, fmt.Errorf("unknown side %q", w.Side)
	}

	return tick, tick.Validate()
}
