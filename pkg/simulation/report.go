package simulation

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

type Report struct {
	StartDate            time.Time
	EndDate              time.Time
	InitialEquity        fixed.Point
	FinalEquity          fixed.Point
	TotalProfit          fixed.Point
	AnnualizedReturn     fixed.Point
	MaxDrawdown          fixed.Point
	RecoveryFactor       fixed.Point
	SharpeRatio          fixed.Point
	SortinoRatio         fixed.Point
	AnnualizedVolatility fixed.Point

	TotalOrders           int
	FilledOrders          int
	PartiallyFilledOrders int
	CancelledOrders       int
	RejectedOrders        int
	ExpiredOrders         int
	FillRate              fixed.Point

	TotalFills      int
	TotalVolume     fixed.Point
	TotalNotional   fixed.Point
	AverageFillSize fixed.Point
	FeesByAsset     map[string]fixed.Point

	ClosedTrades  int
	WinningTrades int
	LosingTrades  int
	WinRate       fixed.Point
	ProfitFactor  fixed.Point
}

func (report Report) Print(logger *zap.Logger) {
	logger.Info("performance report",
		zap.String("initial_equity", report.InitialEquity.String()),
		zap.String("final_equity", report.FinalEquity.String()),
		zap.String("total_profit", fmt.Sprintf("%s%%", report.TotalProfit.String())),
		zap.String("annualized_return", fmt.Sprintf("%s%%", report.AnnualizedReturn.String())),
		zap.String("max_drawdown", fmt.Sprintf("%s%%", report.MaxDrawdown.String())),
		zap.String("recovery_factor", report.RecoveryFactor.String()),
	)

	logger.Info("execution statistics",
		zap.Int("total_orders", report.TotalOrders),
		zap.Int("filled_orders", report.FilledOrders),
		zap.Int("partially_filled_orders", report.PartiallyFilledOrders),
		zap.Int("cancelled_orders", report.CancelledOrders),
		zap.Int("rejected_orders", report.RejectedOrders),
		zap.Int("expired_orders", report.ExpiredOrders),
		zap.String("fill_rate", fmt.Sprintf("%s%%", report.FillRate.String())),
		zap.Int("total_fills", report.TotalFills),
		zap.String("total_volume", report.TotalVolume.String()),
		zap.String("total_notional", report.TotalNotional.String()),
		zap.String("average_fill_size", report.AverageFillSize.String()),
	)

	logger.Info("trade statistics",
		zap.Int("closed_trades", report.ClosedTrades),
		zap.Int("winning_trades", report.WinningTrades),
		zap.Int("losing_trades", report.LosingTrades),
		zap.String("win_rate", fmt.Sprintf("%s%%", report.WinRate.String())),
		zap.String("profit_factor", report.ProfitFactor.String()),
	)

	assets := make([]string, 0, len(report.FeesByAsset))
	for asset := range report.FeesByAsset {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	fees := make([]zap.Field, 0, len(assets))
	for _, asset := range assets {
		fees = append(fees, zap.String(asset, report.FeesByAsset[asset].String()))
	}
	logger.Info("fees paid", fees...)

	logger.Info("risk metrics",
		zap.String("sharpe_ratio", report.SharpeRatio.String()),
		zap.String("sortino_ratio", report.SortinoRatio.String()),
		zap.String("annualized_volatility", fmt.Sprintf("%s%%", report.AnnualizedVolatility.String())),
	)
}
