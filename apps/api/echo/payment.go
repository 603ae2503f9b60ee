package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/user"
)

type paymentApi struct {
	conf     *core.Config
	svc      *payment.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{
		conf:     deps.Conf,
		svc:      deps.PaymentSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/payments")

	// gateway completion webhook; authenticated by challenge, not JWT
	pg.POST("/confirm", api.confirm)

	// authed endpoints
	ag := pg.Group("", jwt)
	ag.GET("/plans", api.queryPlans)
	ag.GET("", api.history)
	ag.GET("/stats", api.stats)
	ag.POST("/initiate", api.initiate, studentMiddleware())
}

// Handlers

func (api *paymentApi) queryPlans(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	gradeLevel := ctx.QueryParam("grade_level")
	institutionID := ctx.QueryParam("institution_id")
	if claims.IsStudent {
		// students only ever see their own institution's schedule
		institutionID = claims.InstitutionID
	}

	plans, err := api.svc.Plans(ctx.Request().Context(), gradeLevel, institutionID)
	if err != nil {
		return errors.Wrap(err, "querying payment plans")
	}
	if plans == nil {
		plans = []payment.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *paymentApi) initiate(ctx echo.Context) error {
	var data InitiateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InitiateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	checkout, rec, err := api.svc.Initiate(ctx.Request().Context(), usr, data.PlanID, data.PhoneNumber)
	if err != nil {
		if errors.Cause(err) == payment.ErrPlanNotFound {
			return errHttpNotFound
		}
		return err
	}

	return ctx.JSON(http.StatusCreated, InitiateResponse{
		CheckoutURL: checkout.URL,
		Reference:   rec.Reference,
		Status:      rec.Status,
	})
}

func (api *paymentApi) confirm(ctx echo.Context) error {
	var data ConfirmRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if api.conf.Gateway.WebhookChallenge != "" && data.Challenge != api.conf.Gateway.WebhookChallenge {
		return errHttpForbidden
	}

	rec, err := api.svc.Confirm(ctx.Request().Context(), data.Reference, data.completed())
	if err != nil {
		if errors.Cause(err) == payment.ErrRecordNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *paymentApi) history(ctx echo.Context) error {
	studentID, err := api.studentScope(ctx)
	if err != nil {
		return err
	}

	recs, err := api.svc.History(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying payment history")
	}
	if recs == nil {
		recs = []payment.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *paymentApi) stats(ctx echo.Context) error {
	studentID, err := api.studentScope(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), studentID, ctx.QueryParam("grade_level"), claims.InstitutionID)
	if err != nil {
		return errors.Wrap(err, "computing payment stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// studentScope resolves whose records are being asked for: students are locked
// to themselves, staff may pass ?student_id.
func (api *paymentApi) studentScope(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if claims.IsStudent {
		return claims.Subject, nil
	}
	if id := ctx.QueryParam("student_id"); id != "" {
		return id, nil
	}
	return claims.Subject, nil
}

type (
	InitiateRequest struct {
		PlanID      string `json:"plan_id" validate:"required"`
		PhoneNumber string `json:"phone_number" validate:"required,msisdn"`
	}

	InitiateResponse struct {
		CheckoutURL string         `json:"checkout_url"`
		Reference   string         `json:"reference"`
		Status      payment.Status `json:"status"`
	}

	ConfirmRequest struct {
		Reference string `json:"api_ref" validate:"required"`
		State     string `json:"state" validate:"required"`
		Challenge string `json:"challenge"`
	}
)

func (ir *InitiateRequest) Validate(validate *validator.Validate) error {
	ir.PhoneNumber = core.CleanString(ir.PhoneNumber)
	return validate.Struct(ir)
}

func (cr *ConfirmRequest) Validate(validate *validator.Validate) error {
	cr.State = core.CleanString(cr.State, true /* lower */)
	return validate.Struct(cr)
}

func (cr *ConfirmRequest) completed() bool {
	return cr.State == "complete" || cr.State == "completed"
}
