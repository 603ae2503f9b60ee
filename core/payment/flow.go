package payment

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// FlowState is the checkout flow state for one client instance.
type FlowState string

const (
	FlowIdle       FlowState = "idle"
	FlowCollecting FlowState = "collecting"
	FlowSubmitting FlowState = "submitting"
	FlowAwaiting   FlowState = "awaiting_confirmation"
	FlowError      FlowState = "error"
)

var (
	ErrNoPlanSelected     = errors.New("no payment plan selected")
	ErrPhoneRequired      = errors.New("please enter your M-PESA phone number")
	ErrSubmissionInFlight = errors.New("a payment submission is already in progress")
)

// Flow drives one student's checkout: select a plan, collect a phone number,
// submit to the gateway, then await external confirmation. Submitting cannot
// be re-entered until the in-flight attempt resolves (single-flight).
type Flow struct {
	svc *Service
	usr user.User

	mu        sync.Mutex
	state     FlowState
	plan      *Plan
	checkout  Checkout
	reference string
	errMsg    string
	inFlight  bool
	notified  bool
	onRefresh func()
}

func NewFlow(svc *Service, usr user.User) *Flow {
	return &Flow{svc: svc, usr: usr, state: FlowIdle}
}

// OnRefresh registers the callback notified (exactly once per attempt) when a
// confirmation lands, so the dashboard can refresh payment state.
func (f *Flow) OnRefresh(fn func()) {
	f.mu.Lock()
	f.onRefresh = fn
	f.mu.Unlock()
}

func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ErrMessage returns the failure text to surface inline, if any.
func (f *Flow) ErrMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Checkout returns the external checkout handed out by the gateway for the
// current attempt.
func (f *Flow) Checkout() Checkout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkout
}

// Select starts collecting payment details for a plan.
func (f *Flow) Select(plan Plan) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.plan = &plan
	f.state = FlowCollecting
	f.errMsg = ""
}

// Cancel closes the dialog. An already-initiated attempt keeps its pending
// record; only its refresh notification is suppressed.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.plan = nil
	f.state = FlowIdle
	f.errMsg = ""
}

// Confirm submits the current plan to the gateway. The phone number is only
// checked for presence here; the gateway is the format authority. A second
// confirm while one is in flight is rejected without a gateway call.
func (f *Flow) Confirm(ctx context.Context, phone string) (Checkout, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return Checkout{}, ErrSubmissionInFlight
	}
	if f.state != FlowCollecting || f.plan == nil {
		f.mu.Unlock()
		return Checkout{}, ErrNoPlanSelected
	}
	if core.CleanString(phone) == "" {
		f.errMsg = ErrPhoneRequired.Error()
		f.state = FlowError
		f.mu.Unlock()
		return Checkout{}, ErrPhoneRequired
	}
	plan := *f.plan
	f.inFlight = true
	f.state = FlowSubmitting
	f.errMsg = ""
	f.mu.Unlock()

	checkout, _, err := f.svc.Initiate(ctx, f.usr, plan.ID, phone)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		// surface the raw failure message; the user may retry
		f.state = FlowError
		f.errMsg = err.Error()
		return Checkout{}, err
	}
	f.state = FlowAwaiting
	f.checkout = checkout
	f.reference = checkout.Reference
	f.notified = false
	return checkout, nil
}

// Complete settles the awaited attempt from an external confirmation event.
// Unknown references and repeated completions are no-ops.
func (f *Flow) Complete(ctx context.Context, reference string, ok bool) error {
	f.mu.Lock()
	if f.state != FlowAwaiting || reference != f.reference {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	if _, err := f.svc.Confirm(ctx, reference, ok); err != nil {
		return errors.Wrap(err, "confirming payment")
	}

	f.mu.Lock()
	var notify func()
	if !f.notified {
		f.notified = true
		notify = f.onRefresh
	}
	if ok {
		f.state = FlowIdle
		f.plan = nil
	} else {
		f.state = FlowError
		f.errMsg = "Payment was not completed. Please try again."
	}
	f.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// AutoConfirmer simulates external completion after a fixed delay. Demo mode
// only: it stands in for the gateway's real completion callback and makes the
// "completed implies gateway success" guarantee a simulation.
type AutoConfirmer struct {
	flow   *Flow
	delay  time.Duration
	logger core.Logger
}

func NewAutoConfirmer(flow *Flow, delay time.Duration, logger core.Logger) *AutoConfirmer {
	return &AutoConfirmer{flow: flow, delay: delay, logger: logger}
}

// Arm schedules completion of the given attempt; cancelling the context
// disarms it.
func (ac *AutoConfirmer) Arm(ctx context.Context, reference string) {
	go func() {
		timer := time.NewTimer(ac.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := ac.flow.Complete(ctx, reference, true); err != nil {
			ac.logger.Warn("auto-confirming payment", err)
		}
	}()
}
