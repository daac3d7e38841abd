package models

// Price item statuses reported by the pricing API.
const (
	PriceStatusPending = "PENDING"
	PriceStatusSuccess = "SUCCESS"
	PriceStatusFailed  = "FAILED"
)

// PriceItem is one entry of a pricing session. Name and Value stay nil while
// the image the item came from is still being processed.
type PriceItem struct {
	ID       string   `json:"id"`
	Name     *string  `json:"name"`
	Value    *float64 `json:"value"`
	Quantity int      `json:"quantity"`
	Status   string   `json:"status"`
}

// SessionSnapshot is the pricing API view of a session at a point in time.
type SessionSnapshot struct {
	ID     string      `json:"id"`
	Total  float64     `json:"total"`
	Prices []PriceItem `json:"prices"`
}

// PriceAnnounce is the payload broadcast on the session topic when a
// submitted price item finished (or failed) remote processing.
type PriceAnnounce struct {
	SessionID string   `json:"sessionId" validate:"required"`
	PriceID   string   `json:"priceId" validate:"required"`
	Name      *string  `json:"name"`
	Value     *float64 `json:"value"`
	Status    string   `json:"status" validate:"required"`
	Total     *float64 `json:"total" validate:"required"`
}
