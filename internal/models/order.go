package models

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

type Validity string

const (
	ValidityDay Validity = "DAY"
	ValidityTTL Validity = "TTL"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderComplete  OrderStatus = "COMPLETE"
	OrderRejected  OrderStatus = "REJECTED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition can happen.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderComplete, OrderRejected, OrderCancelled:
		return true
	}
	return false
}

// Order is what gets submitted to the broker.
type Order struct {
	ID       string    `json:"order_id,omitempty"`
	Symbol   string    `json:"tradingsymbol"`
	Exchange string    `json:"exchange"`
	Product  string    `json:"product"`
	Side     Side      `json:"transaction_type"`
	Quantity int       `json:"quantity"`
	Type     OrderType `json:"order_type"`
	// Price is only sent for limit orders.
	Price       float64     `json:"price,omitempty"`
	Validity    Validity    `json:"validity"`
	ValidityTTL int         `json:"validity_ttl,omitempty"` // minutes
	Status      OrderStatus `json:"status,omitempty"`
}

// OrderReport is the broker's view of an order.
type OrderReport struct {
	OrderID        string
	Status         OrderStatus
	RawStatus      string
	AveragePrice   float64
	FilledQuantity int
	Message        string
}
