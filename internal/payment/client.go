// Package payment talks to the payment gateway. The demo client stands
// in for a real processor: it approves everything after a short
// simulated network delay, which is enough for the storefront's mock
// checkout flow.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/config"
	"go.uber.org/zap"
)

var ErrDeclined = errors.New("payment: authorization declined")

// Authorization is a gateway hold on the shopper's funds. Ref is the
// gateway reference used for capture and void.
type Authorization struct {
	Ref      string  `json:"ref"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

// Client authorizes, captures and voids payments.
type Client interface {
	Authorize(ctx context.Context, amount float64, currency, orderNo string) (*Authorization, error)
	Capture(ctx context.Context, ref string) error
	Void(ctx context.Context, ref string) error
}

// NewClient selects the gateway or demo implementation from config.
func NewClient(cfg config.PaymentConfig) Client {
	if cfg.Mode == "gateway" && cfg.GatewayURL != "" {
		timeout := time.Duration(cfg.TimeoutSec) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		return &GatewayClient{url: cfg.GatewayURL, apiKey: cfg.ApiKey, timeout: timeout}
	}
	return &DemoClient{Delay: 300 * time.Millisecond}
}

// GatewayClient posts to a JSON payment gateway.
type GatewayClient struct {
	url     string
	apiKey  string
	timeout time.Duration
}

type gatewayResponse struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (c *GatewayClient) Authorize(ctx context.Context, amount float64, currency, orderNo string) (*Authorization, error) {
	var resp gatewayResponse
	err := gout.POST(c.url + "/authorize").
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + c.apiKey}).
		SetJSON(gout.H{
			"amount":   amount,
			"currency": currency,
			"order_no": orderNo,
		}).
		BindJSON(&resp).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "payment gateway authorize")
	}
	if resp.Status != "approved" {
		zap.L().Warn("payment authorization declined",
			zap.String("order_no", orderNo), zap.String("reason", resp.Error))
		return nil, ErrDeclined
	}
	return &Authorization{Ref: resp.Ref, Amount: amount, Currency: currency, Status: resp.Status}, nil
}

func (c *GatewayClient) Capture(ctx context.Context, ref string) error {
	var resp gatewayResponse
	err := gout.POST(c.url + "/capture").
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + c.apiKey}).
		SetJSON(gout.H{"ref": ref}).
		BindJSON(&resp).
		Do()
	if err != nil {
		return errors.Wrap(err, "payment gateway capture")
	}
	if resp.Status != "captured" {
		return errors.Errorf("payment capture failed: %s", resp.Error)
	}
	return nil
}

func (c *GatewayClient) Void(ctx context.Context, ref string) error {
	err := gout.POST(c.url + "/void").
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + c.apiKey}).
		SetJSON(gout.H{"ref": ref}).
		Do()
	return errors.Wrap(err, "payment gateway void")
}

// DemoClient approves every authorization after Delay.
type DemoClient struct {
	Delay time.Duration
}

func (c *DemoClient) Authorize(ctx context.Context, amount float64, currency, orderNo string) (*Authorization, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.Delay):
	}
	return &Authorization{
		Ref:      fmt.Sprintf("demo-%s", uuid.NewString()),
		Amount:   amount,
		Currency: currency,
		Status:   "approved",
	}, nil
}

func (c *DemoClient) Capture(ctx context.Context, ref string) error {
	return nil
}

func (c *DemoClient) Void(ctx context.Context, ref string) error {
	zap.L().Info("demo payment voided", zap.String("ref", ref))
	return nil
}
