package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/router/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// Client - интерфейс платежного шлюза. Все суммы на этой границе в центах.
type Client interface {
	CreateChargeIntent(ctx context.Context, customerRef string, amountCents int64, metadata map[string]string) (*ChargeIntent, error)
	CreateCustomer(ctx context.Context, email, username string) (string, error)
	CreatePayeeAccount(ctx context.Context, email string) (*PayeeAccount, error)
	Transfer(ctx context.Context, payeeRef string, amountCents int64, description string) (*TransferResult, error)
}

// ChargeIntent - намерение списания, подтверждаемое плательщиком на фронтенде.
type ChargeIntent struct {
	Ref          string `json:"id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount"`
	Status       string `json:"status"`
}

// PayeeAccount - счет получателя выплат с ссылкой на онбординг.
type PayeeAccount struct {
	Ref           string `json:"id"`
	OnboardingURL string `json:"onboarding_url"`
}

// TransferResult - результат инициации перевода получателю.
type TransferResult struct {
	Ref    string `json:"id"`
	Status string `json:"status"`
}

type customer struct {
	Ref string `json:"id"`
}

// HTTPClient - реализация Client поверх HTTP API шлюза.
type HTTPClient struct {
	client      *resty.Client
	frontendURL string
}

// NewHTTPClient создает новый экземпляр HTTPClient.
func NewHTTPClient(cfg config.Config) *HTTPClient {
	client := resty.New().
		SetBaseURL(cfg.GatewayBaseURL).
		SetTimeout(cfg.GatewayTimeout).
		SetAuthToken(cfg.GatewaySecretKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")
	return &HTTPClient{client: client, frontendURL: cfg.FrontendURL}
}

type rejectionError struct {
	body string
}

func (e *rejectionError) Error() string {
	return "gateway rejected request: " + e.body
}

// call выполняет запрос с повторами на сетевых ошибках и ответах 5xx.
// Ошибки 4xx не повторяются. Исчерпание попыток оборачивается в
// ErrGatewayUnavailable.
func (c *HTTPClient) call(ctx context.Context, path string, form map[string]string, result interface{}) error {
	operation := func() error {
		resp, err := c.client.R().
			SetContext(ctx).
			SetFormData(form).
			SetResult(result).
			Post(path)
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("gateway returned %d", resp.StatusCode())
		}
		if resp.IsError() {
			return backoff.Permanent(&rejectionError{body: resp.String()})
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
	if err != nil {
		var rejection *rejectionError
		if errors.As(err, &rejection) {
			return rejection
		}
		return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
	return nil
}

// CreateChargeIntent создает намерение списания для покупки токенов.
func (c *HTTPClient) CreateChargeIntent(ctx context.Context, customerRef string, amountCents int64, metadata map[string]string) (*ChargeIntent, error) {
	form := map[string]string{
		"customer": customerRef,
		"amount":   strconv.FormatInt(amountCents, 10),
		"currency": "usd",
	}
	for key, value := range metadata {
		form["metadata["+key+"]"] = value
	}

	var intent ChargeIntent
	if err := c.call(ctx, "/v1/charge_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateCustomer регистрирует участника как плательщика шлюза.
func (c *HTTPClient) CreateCustomer(ctx context.Context, email, username string) (string, error) {
	form := map[string]string{
		"email":              email,
		"metadata[username]": username,
	}

	var cust customer
	if err := c.call(ctx, "/v1/customers", form, &cust); err != nil {
		return "", err
	}
	return cust.Ref, nil
}

// CreatePayeeAccount создает счет получателя выплат и возвращает ссылку
// на онбординг. После онбординга шлюз присылает событие о готовности счета.
func (c *HTTPClient) CreatePayeeAccount(ctx context.Context, email string) (*PayeeAccount, error) {
	form := map[string]string{
		"email":       email,
		"return_url":  c.frontendURL + "/payouts/complete",
		"refresh_url": c.frontendURL + "/payouts/refresh",
	}

	var account PayeeAccount
	if err := c.call(ctx, "/v1/payee_accounts", form, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Transfer инициирует перевод получателю. Подтверждение приходит
// отдельным событием вебхука.
func (c *HTTPClient) Transfer(ctx context.Context, payeeRef string, amountCents int64, description string) (*TransferResult, error) {
	form := map[string]string{
		"destination": payeeRef,
		"amount":      strconv.FormatInt(amountCents, 10),
		"currency":    "usd",
		"description": description,
	}

	var transfer TransferResult
	if err := c.call(ctx, "/v1/transfers", form, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}
