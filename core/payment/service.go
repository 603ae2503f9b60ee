package payment

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type Service struct {
	plans   PlanRepository
	records RecordRepository
	gateway Gateway
	mailSvc core.EmailService
	conf    *core.Config
	users   payerLookup // optional, for receipt addressing
}

func NewService(plans PlanRepository, records RecordRepository, gw Gateway, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		plans:   plans,
		records: records,
		gateway: gw,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) Plans(ctx context.Context, gradeLevel, institutionID string) ([]Plan, error) {
	return svc.plans.QueryPlans(ctx, gradeLevel, institutionID)
}

func (svc *Service) GetPlan(ctx context.Context, id string) (Plan, error) {
	return svc.plans.GetPlanByID(ctx, id)
}

func (svc *Service) History(ctx context.Context, studentID string) ([]Record, error) {
	return svc.records.QueryRecordsByStudent(ctx, studentID)
}

// Stats computes totals over completed records and plans not yet completed.
func (svc *Service) Stats(ctx context.Context, studentID, gradeLevel, institutionID string) (Stats, error) {
	recs, err := svc.records.QueryRecordsByStudent(ctx, studentID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying payment records")
	}
	plans, err := svc.plans.QueryPlans(ctx, gradeLevel, institutionID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying payment plans")
	}

	paidPlans := make(map[string]bool, len(recs))
	var stats Stats
	for _, rec := range recs {
		if rec.Status == StatusCompleted {
			stats.TotalPaid += rec.Amount
			paidPlans[rec.PlanID] = true
		}
	}
	for _, plan := range plans {
		if paidPlans[plan.ID] {
			continue
		}
		stats.TotalPending += plan.Amount
		if stats.NextDueDate.IsZero() || plan.DueDate.Before(stats.NextDueDate) {
			stats.NextDueDate = plan.DueDate
		}
	}
	return stats, nil
}

// Initiate builds a fresh gateway Request for the plan, initiates checkout
// (single attempt) and persists a pending Record for the attempt.
func (svc *Service) Initiate(ctx context.Context, usr user.User, planID, phone string) (Checkout, Record, error) {
	plan, err := svc.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return Checkout{}, Record{}, err
	}

	payerEmail := usr.Email
	if payerEmail == "" {
		payerEmail = svc.conf.Gateway.PayerEmail
	}
	ref := newReference()

	req := NewRequest(plan, payerEmail, core.CleanString(phone), ref)
	checkout, err := svc.gateway.Initiate(ctx, req)
	if err != nil {
		return Checkout{}, Record{}, err
	}

	now := time.Now().UTC()
	rec, err := svc.records.CreateRecord(ctx, Record{
		StudentID: usr.ID,
		PlanID:    plan.ID,
		Amount:    plan.Amount,
		Currency:  plan.Currency,
		Status:    StatusPending,
		Method:    MethodMpesa,
		Reference: ref,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Checkout{}, Record{}, errors.Wrap(err, "persisting payment record")
	}
	return checkout, rec, nil
}

// Confirm settles a pending record from the gateway's completion event.
// At most once: confirming an already-settled record is a no-op.
func (svc *Service) Confirm(ctx context.Context, ref string, ok bool) (Record, error) {
	rec, err := svc.records.GetRecordByReference(ctx, ref)
	if err != nil {
		return Record{}, err
	}
	if rec.Status != StatusPending {
		return rec, nil
	}

	status := StatusFailed
	if ok {
		status = StatusCompleted
	}
	rec, err = svc.records.UpdateRecordStatus(ctx, ref, status)
	if err != nil {
		return Record{}, errors.Wrap(err, "updating payment record")
	}

	if rec.Status == StatusCompleted {
		svc.sendReceipt(ctx, rec)
	}
	return rec, nil
}

func (svc *Service) sendReceipt(ctx context.Context, rec Record) {
	plan, err := svc.plans.GetPlanByID(ctx, rec.PlanID)
	if err != nil {
		plan.Name = rec.PlanID
	}

	var name, email string
	if payer, ok := svc.payer(ctx, rec.StudentID); ok {
		name, email = payer.Name, payer.Email
	}
	if email == "" {
		email = svc.conf.Gateway.PayerEmail
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: email}},
		Subject:      "Payment received",
		TemplateName: "payment_receipt",
		TemplateData: struct {
			Name, Currency, PlanName, Reference string
			Amount                              int
		}{name, rec.Currency, plan.Name, rec.Reference, rec.Amount},
	})
}

// payerLookup optionally resolves a student id to an identity for receipts.
type payerLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

var _ payerLookup = (*user.Service)(nil)

func (svc *Service) payer(ctx context.Context, studentID string) (user.User, bool) {
	if svc.users == nil {
		return user.User{}, false
	}
	usr, err := svc.users.GetByID(ctx, studentID)
	return usr, err == nil
}

// WithUserLookup attaches an identity lookup used to address payment receipts.
func (svc *Service) WithUserLookup(users payerLookup) *Service {
	svc.users = users
	return svc
}

func newReference() string {
	return fmt.Sprintf("PAY%s", strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:20])
}
