// Command replay re-runs a journal through a fresh book and prints the
// session summary.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"matchbook/domain/event"
	"matchbook/infra/config"
	"matchbook/service"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	dir := flag.String("journal", "", "journal directory (defaults to journal.dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = cfg.Journal.Dir
	}

	sum, err := service.Replay(*dir, cfg.Instrument.Symbol, cfg.Instrument.DepthSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay stopped after seq %d: %v\n", sum.LastSeq, err)
		os.Exit(1)
	}

	out, err := render(cfg, sum)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func render(cfg *config.Config, sum service.Summary) (string, error) {
	levels := func(ls []event.Level) []any {
		out := make([]any, 0, len(ls))
		for _, l := range ls {
			out = append(out, map[string]any{
				"price":    cfg.DisplayPrice(l.Price).String(),
				"orders":   l.Orders,
				"quantity": int64(l.Quantity),
			})
		}
		return out
	}

	vwap := "0"
	if sum.Volume > 0 {
		vwap = cfg.DisplayPrice(1).Mul(decimal.NewFromInt(int64(sum.Notional))).Div(decimal.NewFromInt(int64(sum.Volume))).StringFixed(4)
	}

	s, err := structpb.NewStruct(map[string]any{
		"symbol":       cfg.Instrument.Symbol,
		"records":      sum.Records,
		"orders":       sum.Orders,
		"trades":       sum.Trades,
		"volume":       int64(sum.Volume),
		"vwap":         vwap,
		"last_seq":     sum.LastSeq,
		"market_price": cfg.DisplayPrice(sum.MarketPrice).String(),
		"bids":         levels(sum.Bids),
		"asks":         levels(sum.Asks),
	})
	if err != nil {
		return "", err
	}
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	return string(b), err
}
