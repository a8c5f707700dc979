package domain

import "time"

type CheckoutStep string

const (
	StepShipping     CheckoutStep = "shipping"
	StepPayment      CheckoutStep = "payment"
	StepConfirmation CheckoutStep = "confirmation"
)

func (s CheckoutStep) IsTerminal() bool {
	return s == StepConfirmation
}

func (s CheckoutStep) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCreditCard     PaymentMethod = "credit_card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentCreditCard
}

type (
	User struct {
		ID    string
		Email string
		Name  string
	}

	CartItem struct {
		ProductID string  `json:"id"`
		Name      string  `json:"name"`
		Price     float64 `json:"price"`
		Image     string  `json:"image"`
		Quantity  int     `json:"quantity"`
	}

	ShippingInfo struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
		City      string `json:"city"`
		Country   string `json:"country"`
	}

	// CheckoutState is persisted between requests, hence the json tags.
	CheckoutState struct {
		ID            string        `json:"id"`
		UserID        string        `json:"user_id"`
		Step          CheckoutStep  `json:"step"`
		Shipping      ShippingInfo  `json:"shipping"`
		PaymentMethod PaymentMethod `json:"payment_method"`
		Cart          []CartItem    `json:"cart"`
		Submitting    bool          `json:"submitting"`
		Order         *Order        `json:"order,omitempty"`
		Degraded      bool          `json:"degraded"`
		CreatedAt     time.Time     `json:"created_at"`
		UpdatedAt     time.Time     `json:"updated_at"`
	}
)

func (s ShippingInfo) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
