package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T, gw payment.Gateway) (*payment.Service, user.User) {
	conf := core.NewConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, nopLogger{})

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	dummydb.SeedDemoUsers(db)
	dummydb.SeedDemoPlans(db)

	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, conf)
	svc := payment.NewService(
		dummydb.NewPlanRepository(db),
		dummydb.NewRecordRepository(db),
		gw,
		mailSvc,
		conf,
	).WithUserLookup(usrSvc)

	return svc, user.MockDirectory()[0] // John, the demo student
}

func TestService_Initiate(t *testing.T) {
	gw := &payment.StubGateway{}
	svc, student := setup(t, gw)
	ctx := context.Background()

	checkout, rec, err := svc.Initiate(ctx, student, "plan-1", "+254712345678")
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}

	// the gateway request carries the plan's exact amount and currency
	reqs := gw.Requests()
	if len(reqs) != 1 {
		t.Fatalf("gateway saw %d requests, want 1", len(reqs))
	}
	assert.Equal(t, 20000, reqs[0].Amount)
	assert.Equal(t, "KES", reqs[0].Currency)
	assert.Equal(t, "+254712345678", reqs[0].PhoneNumber)
	assert.Equal(t, student.Email, reqs[0].Email)
	assert.Contains(t, reqs[0].Comment, "Grade 3 Term 1 Fees")

	assert.NotEmpty(t, checkout.URL)
	assert.Equal(t, rec.Reference, checkout.Reference)
	assert.Equal(t, payment.StatusPending, rec.Status)
	assert.Equal(t, payment.MethodMpesa, rec.Method)
	assert.Equal(t, student.ID, rec.StudentID)
	assert.Equal(t, 20000, rec.Amount)
	assert.Equal(t, "KES", rec.Currency)
}

func TestService_Initiate_freshReferencePerAttempt(t *testing.T) {
	svc, student := setup(t, &payment.StubGateway{})
	ctx := context.Background()

	_, rec1, err := svc.Initiate(ctx, student, "plan-2", "0712345678")
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	_, rec2, err := svc.Initiate(ctx, student, "plan-2", "0712345678")
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}

	assert.NotEqual(t, rec1.Reference, rec2.Reference)
}

func TestService_Initiate_gatewayRejection(t *testing.T) {
	gwErr := &payment.GatewayError{Op: "initiate", Message: "Insufficient gateway balance"}
	svc, student := setup(t, &payment.StubGateway{Err: gwErr})
	ctx := context.Background()

	_, _, err := svc.Initiate(ctx, student, "plan-1", "0712345678")

	assert.Equal(t, gwErr, err)
	// no record is persisted for a rejected initiation
	recs, err := svc.History(ctx, student.ID)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	assert.Empty(t, recs)
}

func TestService_Initiate_unknownPlan(t *testing.T) {
	svc, student := setup(t, &payment.StubGateway{})

	_, _, err := svc.Initiate(context.Background(), student, "nope", "0712345678")

	assert.Equal(t, payment.ErrPlanNotFound, err)
}

func TestService_Confirm(t *testing.T) {
	svc, student := setup(t, &payment.StubGateway{})
	ctx := context.Background()

	_, rec, err := svc.Initiate(ctx, student, "plan-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	sentBefore := len(emailsvc.SentMessages)

	rec, err = svc.Confirm(ctx, rec.Reference, true)
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}
	assert.Equal(t, payment.StatusCompleted, rec.Status)
	assert.Equal(t, sentBefore+1, len(emailsvc.SentMessages), "a receipt must go out")

	// settling again is a no-op, even with the opposite outcome
	rec, err = svc.Confirm(ctx, rec.Reference, false)
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}
	assert.Equal(t, payment.StatusCompleted, rec.Status)
	assert.Equal(t, sentBefore+1, len(emailsvc.SentMessages), "no second receipt")
}

func TestService_Confirm_failure(t *testing.T) {
	svc, student := setup(t, &payment.StubGateway{})
	ctx := context.Background()

	_, rec, err := svc.Initiate(ctx, student, "plan-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	sentBefore := len(emailsvc.SentMessages)

	rec, err = svc.Confirm(ctx, rec.Reference, false)
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}
	assert.Equal(t, payment.StatusFailed, rec.Status)
	assert.Equal(t, sentBefore, len(emailsvc.SentMessages), "no receipt for a failed payment")
}

func TestService_Confirm_unknownReference(t *testing.T) {
	svc, _ := setup(t, &payment.StubGateway{})

	_, err := svc.Confirm(context.Background(), "PAYNOPE", true)

	assert.Equal(t, payment.ErrRecordNotFound, err)
}

func TestService_Stats(t *testing.T) {
	svc, student := setup(t, &payment.StubGateway{})
	ctx := context.Background()

	// pay plan-1 (20000), leave plan-2 (5000, due 02-20) and plan-3 (8000, due 02-10) open
	_, rec, err := svc.Initiate(ctx, student, "plan-1", "0712345678")
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	if _, err = svc.Confirm(ctx, rec.Reference, true); err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}

	stats, err := svc.Stats(ctx, student.ID, "grade-3", student.InstitutionID)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}

	assert.Equal(t, 20000, stats.TotalPaid)
	assert.Equal(t, 13000, stats.TotalPending)
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), stats.NextDueDate)
}

func TestService_Stats_pendingAttemptStillOwed(t *testing.T) {
	svc, student := setup(t, &payment.StubGateway{})
	ctx := context.Background()

	// an initiated but unconfirmed attempt does not count as paid
	if _, _, err := svc.Initiate(ctx, student, "plan-1", "0712345678"); err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}

	stats, err := svc.Stats(ctx, student.ID, "grade-3", student.InstitutionID)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}

	assert.Equal(t, 0, stats.TotalPaid)
	assert.Equal(t, 33000, stats.TotalPending)
}
