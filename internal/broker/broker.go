// Package broker defines the brokerage capability the order manager
// and account layers depend on, plus a local (simulated) and a live
// (Alpaca) implementation (spec section 6, "External interfaces").
package broker

import (
	"context"
	"time"
)

// OrderSide is buy or sell.
type OrderSide string

const (
	// Buy opens or adds to a position.
	Buy OrderSide = "buy"
	// Sell closes or trims a position.
	Sell OrderSide = "sell"
)

// OrderStatus mirrors the subset of Alpaca order lifecycle states the
// engine reconciles against.
type OrderStatus string

const (
	// StatusOpen is a live, unfilled order.
	StatusOpen OrderStatus = "open"
	// StatusFilled is a fully executed order.
	StatusFilled OrderStatus = "filled"
	// StatusCanceled was withdrawn before it filled.
	StatusCanceled OrderStatus = "canceled"
	// StatusRejected was refused by the broker or exchange.
	StatusRejected OrderStatus = "rejected"
)

// OrderRequest is a market order submission.
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	Qty           float64
	ClientOrderID string
}

// Order is the broker's view of a submitted order.
type Order struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Side           OrderSide
	Status         OrderStatus
	Qty            float64
	FilledQty      float64
	FilledAvgPrice float64
	SubmittedAt    time.Time
	FilledAt       time.Time
}

// Position is the broker's view of a held symbol, as returned by
// GetAllPositions.
type Position struct {
	Symbol       string
	Qty          float64
	AvgEntryPrice float64
	MarketValue  float64
	CurrentPrice float64
}

// Account is the broker's view of cash and total portfolio value.
type Account struct {
	Cash          float64
	PortfolioValue float64
}

// Broker is the capability interface spec section 6 describes: the
// handful of Alpaca trading-API calls the order manager and account
// layers need, shared by the local-simulated and live implementations.
type Broker interface {
	GetAllPositions(ctx context.Context) ([]Position, error)
	GetAccount(ctx context.Context) (Account, error)
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (Order, error)
	GetOrderByClientID(ctx context.Context, clientOrderID string) (Order, error)
	GetOpenOrders(ctx context.Context) ([]Order, error)
	CancelOrders(ctx context.Context) error
}
