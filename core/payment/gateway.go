package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var checkoutEndpoint = "/api/v1/checkout/"

// Checkout is the gateway's answer to an initiation: the external page to
// complete payment on.
type Checkout struct {
	URL       string `json:"url"`
	Reference string `json:"reference"`
}

// Gateway initiates a payment with the remote processor. A single attempt per
// user action; the caller decides whether the user may retry.
type Gateway interface {
	Initiate(ctx context.Context, req Request) (Checkout, error)
}

// GatewayError is a rejection or unreachability of the remote gateway. The
// message is surfaced to the user verbatim.
type GatewayError struct {
	Op      string
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

// HTTPGateway implements Gateway against a hosted checkout API.
type HTTPGateway struct {
	client         *http.Client
	baseURL        string
	publishableKey string
}

var _ Gateway = (*HTTPGateway)(nil)

func NewHTTPGateway(conf *core.Config) *HTTPGateway {
	return &HTTPGateway{
		client:         &http.Client{Timeout: conf.Gateway.Timeout},
		baseURL:        strings.TrimRight(conf.Gateway.BaseURL, "/"),
		publishableKey: conf.Gateway.PublishableKey,
	}
}

type (
	checkoutRequest struct {
		PublicKey string `json:"public_key"`
		Request
	}

	checkoutResponse struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}

	gatewayErrorResponse struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
)

func (gw *HTTPGateway) Initiate(ctx context.Context, req Request) (Checkout, error) {
	data, err := json.Marshal(checkoutRequest{PublicKey: gw.publishableKey, Request: req})
	if err != nil {
		return Checkout{}, errors.Wrap(err, "encoding checkout request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, gw.baseURL+checkoutEndpoint, bytes.NewReader(data))
	if err != nil {
		return Checkout{}, errors.Wrap(err, "building checkout request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := gw.client.Do(httpReq)
	if err != nil {
		return Checkout{}, &GatewayError{Op: "initiate", Message: err.Error()}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		var gwErr gatewayErrorResponse
		body, _ := ioutil.ReadAll(res.Body)
		_ = json.Unmarshal(body, &gwErr)
		msg := gwErr.Detail
		if msg == "" {
			msg = gwErr.Message
		}
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return Checkout{}, &GatewayError{Op: "initiate", Message: msg}
	}

	var out checkoutResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Checkout{}, errors.Wrap(err, "decoding checkout response")
	}
	return Checkout{URL: out.URL, Reference: req.APIRef}, nil
}

// StubGateway serves demo deployments and tests: it hands out a sandbox
// checkout URL without any network call, or fails with Err when set.
type StubGateway struct {
	CheckoutURL string
	Err         error

	mu       sync.Mutex
	requests []Request
}

var _ Gateway = (*StubGateway)(nil)

func (gw *StubGateway) Initiate(_ context.Context, req Request) (Checkout, error) {
	gw.mu.Lock()
	gw.requests = append(gw.requests, req)
	gw.mu.Unlock()

	if gw.Err != nil {
		return Checkout{}, gw.Err
	}
	url := gw.CheckoutURL
	if url == "" {
		url = "https://sandbox.gateway.local/checkout/" + req.APIRef
	}
	return Checkout{URL: url, Reference: req.APIRef}, nil
}

// Requests returns a copy of all initiation payloads seen so far.
func (gw *StubGateway) Requests() []Request {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	out := make([]Request, len(gw.requests))
	copy(out, gw.requests)
	return out
}
