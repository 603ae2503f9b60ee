// Package payment implements school-fee payment plans, initiation against the
// remote mobile-money gateway, and the client checkout flow.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Status of a payment record. A completed record implies the corresponding
// gateway transaction succeeded (demo auto-confirmation excepted).
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// MethodMpesa is the only supported payment method for now.
const MethodMpesa = "mpesa"

var (
	// errors
	ErrPlanNotFound   = errors.New("payment plan not found")
	ErrRecordNotFound = errors.New("payment record not found")
)

// Plan is a payable obligation (fee). Read-only from this package's
// perspective; plans are sourced externally.
type Plan struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Amount        int       `json:"amount" validate:"gt=0"` // major units, no cents per locale
	Currency      string    `json:"currency" validate:"len=3"`
	Term          string    `json:"term"`
	DueDate       time.Time `json:"due_date"`
	Description   string    `json:"description"`
	GradeLevel    string    `json:"grade_level"`
	InstitutionID string    `json:"institution_id"`
}

// Request is the ephemeral payload sent to the gateway; constructed fresh per
// payment attempt, never persisted.
type Request struct {
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	APIRef      string `json:"api_ref"`
	Comment     string `json:"comment"`
}

// NewRequest builds a Request for a plan; amount and currency are copied from
// the plan exactly.
func NewRequest(plan Plan, payerEmail, phone, ref string) Request {
	return Request{
		Amount:      plan.Amount,
		Currency:    plan.Currency,
		Email:       payerEmail,
		PhoneNumber: phone,
		APIRef:      ref,
		Comment:     fmt.Sprintf("School fees payment for %s", plan.Name),
	}
}

// Record is a durable payment attempt.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	PlanID    string    `json:"plan_id"`
	Amount    int       `json:"amount"`
	Currency  string    `json:"currency"`
	Status    Status    `json:"status"`
	Method    string    `json:"method"`
	Reference string    `json:"reference_number"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Stats summarizes a student's payment position.
type Stats struct {
	TotalPaid    int       `json:"total_paid"`
	TotalPending int       `json:"total_pending"`
	NextDueDate  time.Time `json:"next_due_date"`
}

type (
	PlanRepository interface {
		QueryPlans(ctx context.Context, gradeLevel, institutionID string) ([]Plan, error)
		GetPlanByID(ctx context.Context, id string) (Plan, error)
	}

	RecordRepository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecordByReference(ctx context.Context, ref string) (Record, error)
		QueryRecordsByStudent(ctx context.Context, studentID string) ([]Record, error)
		UpdateRecordStatus(ctx context.Context, ref string, status Status) (Record, error)
	}
)
