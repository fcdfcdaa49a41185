package checkout

import "sort"

type ShippingMethod struct {
	Code                  string `json:"code"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	BaseCost              int64  `json:"base_cost"`
	CostPerKg             int64  `json:"cost_per_kg"`
	FreeShippingThreshold int64  `json:"free_shipping_threshold,omitempty"` // 0 = never free
	EstimatedDaysMin      int    `json:"estimated_days_min"`
	EstimatedDaysMax      int    `json:"estimated_days_max"`
	Active                bool   `json:"active"`
	CODAvailable          bool   `json:"cod_available"`
}

type PaymentMethod struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ProcessingFee int64  `json:"processing_fee"`
	MinAmount     int64  `json:"min_amount"`
	MaxAmount     int64  `json:"max_amount,omitempty"` // 0 = unbounded
	Active        bool   `json:"active"`
	IsCOD         bool   `json:"is_cod"`
}

const (
	PaymentCOD          = "cod"
	PaymentBankTransfer = "bank_transfer"
	PaymentCreditCard   = "credit_card"
	PaymentEWallet      = "ewallet"
	PaymentQRIS         = "qris"
)

// Accepts reports whether amount is inside the method's range.
func (p PaymentMethod) Accepts(amount int64) bool {
	if amount < p.MinAmount {
		return false
	}
	return p.MaxAmount == 0 || amount <= p.MaxAmount
}

func DefaultShippingMethods() []ShippingMethod {
	return []ShippingMethod{
		{Code: "regular", Name: "Regular", Description: "Standard delivery", BaseCost: 15000, CostPerKg: 5000,
			FreeShippingThreshold: 500000, EstimatedDaysMin: 3, EstimatedDaysMax: 5, Active: true, CODAvailable: true},
		{Code: "express", Name: "Express", Description: "Fast delivery", BaseCost: 25000, CostPerKg: 8000,
			FreeShippingThreshold: 1000000, EstimatedDaysMin: 1, EstimatedDaysMax: 2, Active: true, CODAvailable: true},
		{Code: "same_day", Name: "Same Day", Description: "Delivered today", BaseCost: 50000, CostPerKg: 10000,
			FreeShippingThreshold: 2000000, EstimatedDaysMin: 0, EstimatedDaysMax: 0, Active: true, CODAvailable: false},
		{Code: "next_day", Name: "Next Day", Description: "Delivered tomorrow", BaseCost: 35000, CostPerKg: 8000,
			FreeShippingThreshold: 1500000, EstimatedDaysMin: 1, EstimatedDaysMax: 1, Active: true, CODAvailable: true},
	}
}

func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{Code: PaymentCOD, Name: "Cash on Delivery", Description: "Pay when the package arrives",
			MaxAmount: 10_000_000, Active: true, IsCOD: true},
		{Code: PaymentBankTransfer, Name: "Bank Transfer", Description: "Manual transfer to our account",
			MaxAmount: 10_000_000, Active: true},
		{Code: PaymentCreditCard, Name: "Credit Card", Description: "Visa, Mastercard, JCB",
			ProcessingFee: 2500, MinAmount: 10_000, MaxAmount: 50_000_000, Active: true},
		{Code: PaymentEWallet, Name: "E-Wallet", Description: "GoPay, OVO, DANA, ShopeePay",
			MinAmount: 10_000, MaxAmount: 10_000_000, Active: true},
		{Code: PaymentQRIS, Name: "QRIS", Description: "Scan with any QRIS app",
			MinAmount: 10_000, MaxAmount: 5_000_000, Active: true},
	}
}

// Methods holds the shipping and payment reference data. It is read-only
// after construction and safe for concurrent use.
type Methods struct {
	shipping []ShippingMethod
	payment  []PaymentMethod
}

func NewMethods(shipping []ShippingMethod, payment []PaymentMethod) *Methods {
	m := &Methods{
		shipping: append([]ShippingMethod(nil), shipping...),
		payment:  append([]PaymentMethod(nil), payment...),
	}
	sort.SliceStable(m.shipping, func(i, j int) bool { return m.shipping[i].BaseCost < m.shipping[j].BaseCost })
	return m
}

func DefaultMethods() *Methods {
	return NewMethods(DefaultShippingMethods(), DefaultPaymentMethods())
}

func (m *Methods) Shipping(code string) (ShippingMethod, bool) {
	for _, s := range m.shipping {
		if s.Code == code {
			return s, true
		}
	}
	return ShippingMethod{}, false
}

func (m *Methods) Payment(code string) (PaymentMethod, bool) {
	for _, p := range m.payment {
		if p.Code == code {
			return p, true
		}
	}
	return PaymentMethod{}, false
}

// AvailableShipping lists active methods, cheapest first. When paymentCode is
// a COD method only COD-capable shipping is returned.
func (m *Methods) AvailableShipping(paymentCode string) []ShippingMethod {
	cod := false
	if p, ok := m.Payment(paymentCode); ok {
		cod = p.IsCOD
	}
	out := []ShippingMethod{}
	for _, s := range m.shipping {
		if !s.Active || (cod && !s.CODAvailable) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// AvailablePayments lists active methods accepting total. A total <= 0
// skips the range check.
func (m *Methods) AvailablePayments(total int64) []PaymentMethod {
	out := []PaymentMethod{}
	for _, p := range m.payment {
		if !p.Active {
			continue
		}
		if total > 0 && !p.Accepts(total) {
			continue
		}
		out = append(out, p)
	}
	return out
}
