package records

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for every stored date.
const DateLayout = "2006-01-02"

type BillStatus string

const (
	BillPending BillStatus = "Pending"
	BillPaid    BillStatus = "Paid"
)

// Bill is owned by exactly one Patient. Its id is unique only within that
// patient's bill list.
type Bill struct {
	ID          int        `json:"id"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Status      BillStatus `json:"status"`
}

func (b Bill) Identity() int { return b.ID }

func (b Bill) IsPaid() bool { return b.Status == BillPaid }

func (b Bill) ToRecord() Record {
	return Record{
		"id":          b.ID,
		"amount":      b.Amount,
		"description": b.Description,
		"date":        b.Date,
		"status":      string(b.Status),
	}
}

func BillFromRecord(r Record) (Bill, error) {
	var (
		b   Bill
		err error
	)
	if b.ID, err = r.ID("id"); err != nil {
		return Bill{}, withEntity("bill", err)
	}
	if b.Amount, err = r.NonNegativeFloat("amount"); err != nil {
		return Bill{}, withEntity("bill", err)
	}
	if b.Description, err = r.String("description"); err != nil {
		return Bill{}, withEntity("bill", err)
	}
	if b.Date, err = r.String("date"); err != nil {
		return Bill{}, withEntity("bill", err)
	}

	status, err := r.OptionalString("status")
	if err != nil {
		return Bill{}, withEntity("bill", err)
	}
	if b.Status, err = ParseBillStatus(status); err != nil {
		return Bill{}, &MalformedRecordError{Entity: "bill", Field: "status", Reason: err.Error()}
	}
	return b, nil
}

// ParseBillStatus accepts either status regardless of case; empty means Pending.
func ParseBillStatus(s string) (BillStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return BillPending, nil
	case "paid":
		return BillPaid, nil
	default:
		return "", &ValidationError{Field: "status", Reason: "must be Pending or Paid, got " + s}
	}
}

// Validate checks a bill supplied by a caller before it is stored.
func (b Bill) Validate() error {
	if math.IsNaN(b.Amount) || math.IsInf(b.Amount, 0) {
		return &ValidationError{Field: "amount", Reason: "must be a number"}
	}
	if b.Amount < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if strings.TrimSpace(b.Description) == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if err := ValidateDate("date", b.Date); err != nil {
		return err
	}
	if b.Status != BillPending && b.Status != BillPaid {
		return &ValidationError{Field: "status", Reason: "must be Pending or Paid"}
	}
	return nil
}

// ValidateDate requires an ISO YYYY-MM-DD calendar date.
func ValidateDate(field, value string) error {
	if _, err := time.Parse(DateLayout, value); err != nil {
		return &ValidationError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return nil
}
