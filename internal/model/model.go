// Package model содержит доменные сущности сервиса учёта заказов типографии.
package model

import "time"

// Admin представляет учётную запись оператора.
type Admin struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// Order описывает заказ клиента. Денежные суммы хранятся в копейках.
type Order struct {
	ID             string
	CustomerName   string
	Phone          string
	Size           string
	TotalCents     int64
	AdvanceCents   int64
	RemainingCents int64
	PaymentStatus  PaymentStatus
	OrderDate      time.Time
	DeliveryDate   *time.Time
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Normalize пересчитывает производные поля заказа. Вызывается
// непосредственно перед каждой записью в хранилище.
func (o *Order) Normalize() {
	o.RemainingCents = o.TotalCents - o.AdvanceCents
	o.PaymentStatus = DerivePaymentStatus(o.TotalCents, o.AdvanceCents)
}

// DerivePaymentStatus вычисляет статус оплаты по полной сумме и авансу.
func DerivePaymentStatus(totalCents, advanceCents int64) PaymentStatus {
	remaining := totalCents - advanceCents
	switch {
	case remaining == 0 && advanceCents > 0:
		return PaymentStatusPaid
	case advanceCents > 0:
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// OrderPatch описывает частичное обновление заказа: nil означает,
// что поле не передавалось и не должно изменяться.
type OrderPatch struct {
	CustomerName *string
	Phone        *string
	Size         *string
	TotalCents   *int64
	AdvanceCents *int64
	OrderDate    *time.Time
	DeliveryDate **time.Time
	Notes        *string
}

// ListFilter задаёт условия отбора заказов.
type ListFilter struct {
	Search        string
	PaymentStatus PaymentStatus
}

// ListSort задаёт поле и направление сортировки списка заказов.
type ListSort struct {
	Field string
	Desc  bool
}

// DashboardStats содержит агрегированные показатели для панели управления.
// Денежные суммы в копейках; при отсутствии заказов все значения равны нулю.
type DashboardStats struct {
	TotalOrders         int64
	PendingOrders       int64
	PartialOrders       int64
	PaidOrders          int64
	TodayOrders         int64
	TotalRevenueCents   int64
	PaidRevenueCents    int64
	PendingRevenueCents int64
	MonthlyRevenueCents int64
}
