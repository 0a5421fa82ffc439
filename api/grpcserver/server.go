// Package grpcserver exposes OrderService over gRPC. Prices on the wire are
// decimal strings on the instrument's tick grid.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"matchbook/domain/event"
	"matchbook/domain/orderbook"
	"matchbook/infra/config"
	"matchbook/service"
)

// Server adapts OrderService to gRPC.
type Server struct {
	svc *service.OrderService
	cfg *config.Config
}

func NewServer(svc *service.OrderService, cfg *config.Config) *Server {
	return &Server{svc: svc, cfg: cfg}
}

// -------------------- Commands --------------------

func (s *Server) Place(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()

	var buy bool
	switch side := f["side"].GetStringValue(); side {
	case "buy":
		buy = true
	case "sell":
	default:
		return nil, status.Errorf(codes.InvalidArgument, "side must be buy or sell, got %q", side)
	}
	price, err := s.price(f, "price")
	if err != nil {
		return nil, err
	}
	stop, err := s.price(f, "stop_price")
	if err != nil {
		return nil, err
	}

	qty, err := integer(f, "quantity")
	if err != nil {
		return nil, err
	}

	res, err := s.svc.Place(ctx, service.PlaceRequest{
		Buy:        buy,
		Price:      price,
		StopPrice:  stop,
		Quantity:   orderbook.Quantity(qty),
		Conditions: orderbook.ParseConditions(f["conditions"].GetStringValue()),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"order_id": res.OrderID,
		"matched":  res.Matched,
		"state":    res.State.String(),
		"filled":   int64(res.Filled),
	})
}

func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req.GetFields())
	if err != nil {
		return nil, err
	}
	if err := s.svc.Cancel(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"order_id": id})
}

func (s *Server) Replace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	id, err := orderID(f)
	if err != nil {
		return nil, err
	}
	delta, err := integer(f, "size_delta")
	if err != nil {
		return nil, err
	}
	price, err := s.price(f, "price")
	if err != nil {
		return nil, err
	}
	matched, err := s.svc.Replace(ctx, id, orderbook.Quantity(delta), price)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"order_id": id, "matched": matched})
}

func (s *Server) SetMarketPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	price, err := s.price(req.GetFields(), "price")
	if err != nil {
		return nil, err
	}
	if err := s.svc.SetMarketPrice(ctx, price); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"price": s.display(price)})
}

// -------------------- Queries --------------------

func (s *Server) Snapshot(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	snap := s.svc.Snapshot()

	orders := make([]any, 0, len(snap.Orders)+len(snap.Stops))
	for _, o := range append(snap.Orders, snap.Stops...) {
		entry := map[string]any{
			"order_id":   o.ID,
			"buy":        o.Buy,
			"price":      s.display(orderbook.Price(o.Price)),
			"open":       o.Open,
			"conditions": orderbook.OrderConditions(o.Conditions).String(),
		}
		if o.StopPrice != 0 {
			entry["stop_price"] = s.display(orderbook.Price(o.StopPrice))
		}
		orders = append(orders, entry)
	}

	return structpb.NewStruct(map[string]any{
		"symbol":       snap.Symbol,
		"seq":          snap.Seq,
		"market_price": s.display(orderbook.Price(snap.MarketPrice)),
		"bids":         s.levels(snap.Bids),
		"asks":         s.levels(snap.Asks),
		"orders":       orders,
	})
}

func (s *Server) Depth(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	d := s.svc.Depth()
	return structpb.NewStruct(map[string]any{
		"symbol": d.Symbol,
		"bids":   s.levels(d.Bids),
		"asks":   s.levels(d.Asks),
	})
}

// -------------------- Converters --------------------

// price reads a decimal price field. Strings and numbers are accepted; a
// missing field is the zero price.
func (s *Server) price(f map[string]*structpb.Value, key string) (orderbook.Price, error) {
	v, ok := f[key]
	if !ok {
		return 0, nil
	}
	d, err := number(v, key)
	if err != nil {
		return 0, err
	}
	p, err := s.cfg.TicksFor(d)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "%s: %v", key, err)
	}
	return p, nil
}

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// integer reads a whole-number field; a missing field is zero. Fractions
// are rejected rather than truncated.
func integer(f map[string]*structpb.Value, key string) (int64, error) {
	v, ok := f[key]
	if !ok {
		return 0, nil
	}
	d, err := number(v, key)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number, got %s", key, d)
	}
	if d.Abs().GreaterThan(maxInt64) {
		return 0, status.Errorf(codes.InvalidArgument, "%s out of range: %s", key, d)
	}
	return d.IntPart(), nil
}

func orderID(f map[string]*structpb.Value) (uint64, error) {
	id, err := integer(f, "order_id")
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "order_id must not be negative, got %d", id)
	}
	return uint64(id), nil
}

func number(v *structpb.Value, key string) (decimal.Decimal, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return decimal.Decimal{}, status.Errorf(codes.InvalidArgument, "%s: %v", key, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		if math.IsNaN(k.NumberValue) || math.IsInf(k.NumberValue, 0) {
			return decimal.Decimal{}, status.Errorf(codes.InvalidArgument, "%s is not finite", key)
		}
		return decimal.NewFromFloat(k.NumberValue), nil
	default:
		return decimal.Decimal{}, status.Errorf(codes.InvalidArgument, "%s must be a string or number", key)
	}
}

func (s *Server) display(p orderbook.Price) string {
	return s.cfg.DisplayPrice(p).String()
}

func (s *Server) levels(ls []event.Level) []any {
	out := make([]any, 0, len(ls))
	for _, l := range ls {
		out = append(out, map[string]any{
			"price":    s.display(l.Price),
			"orders":   l.Orders,
			"quantity": int64(l.Quantity),
		})
	}
	return out
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownOrder):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs every call with its latency and status code.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"latency", time.Since(start),
			"err", errString(err))
		return resp, err
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprint(err)
}
