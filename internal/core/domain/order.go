package domain

import "time"

type PaymentMethod string

const (
	PaymentWebpay   PaymentMethod = "webpay"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentWebpay || m == PaymentTransfer
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderLine struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID            string        `json:"id"`
	Customer      Customer      `json:"customer"`
	Lines         []OrderLine   `json:"lines"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ContactForm is the payload handed to the notification collaborator.
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
