package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/config"
)

// Provider transaction states
const (
	ProviderStatusSuccess   = "success"
	ProviderStatusFailed    = "failed"
	ProviderStatusAbandoned = "abandoned"
	ProviderStatusPending   = "pending"
	ProviderStatusNotFound  = "not_found"
)

// CheckoutRequest is the input of a provider checkout creation
type CheckoutRequest struct {
	Email       string
	AmountCents int64
	Currency    string
	CustomerID  string
	Metadata    map[string]string
}

// CheckoutSession is a created provider checkout
type CheckoutSession struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// VerifiedTransaction is the provider's authoritative view of a payment
type VerifiedTransaction struct {
	Reference   string
	Status      string
	AmountCents int64
	Currency    string
}

// Succeeded reports whether the provider confirmed the payment
func (t *VerifiedTransaction) Succeeded() bool {
	return t.Status == ProviderStatusSuccess
}

// Final reports whether the provider will not change its answer
func (t *VerifiedTransaction) Final() bool {
	switch t.Status {
	case ProviderStatusSuccess, ProviderStatusFailed, ProviderStatusAbandoned, ProviderStatusNotFound:
		return true
	}
	return false
}

// PaymentProvider is the payment gateway used to start and verify payments
type PaymentProvider interface {
	FindOrCreateCustomer(ctx context.Context, email string) (string, error)
	InitializeTransaction(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error)
}

// PaystackClient talks to a Paystack-compatible REST API
type PaystackClient struct {
	baseURL     string
	secretKey   string
	callbackURL string
	client      *http.Client
	logger      *logrus.Logger
}

// NewPaystackClient creates a provider client from configuration
func NewPaystackClient(cfg config.PaymentConfig, logger *logrus.Logger) *PaystackClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaystackClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeBody struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type customerData struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

// do sends a request and decodes the envelope. It returns the HTTP status
// alongside the envelope so callers can interpret 4xx answers.
func (p *PaystackClient) do(ctx context.Context, method, path string, body interface{}) (int, *envelope, error) {
	if p.secretKey == "" {
		return 0, nil, apperrors.MissingProviderKey()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Error("Payment provider unreachable")
		return 0, nil, apperrors.Provider(apperrors.CodeProviderUnreachable, "payment provider unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, apperrors.Provider(apperrors.CodeProviderUnreachable, "failed to read provider response", err)
	}

	p.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
	}).Debug("Payment provider response")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, nil, apperrors.Provider(apperrors.CodeProviderBadResponse,
			fmt.Sprintf("unexpected provider response (status %d)", resp.StatusCode), err)
	}
	return resp.StatusCode, &env, nil
}

// FindOrCreateCustomer returns the provider customer code for email
func (p *PaystackClient) FindOrCreateCustomer(ctx context.Context, email string) (string, error) {
	status, env, err := p.do(ctx, http.MethodGet, "/customer/"+url.PathEscape(email), nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusOK && env.Status {
		var existing customerData
		if err := json.Unmarshal(env.Data, &existing); err == nil && existing.CustomerCode != "" {
			return existing.CustomerCode, nil
		}
	}

	status, env, err = p.do(ctx, http.MethodPost, "/customer", map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	if status/100 != 2 || !env.Status {
		return "", apperrors.Provider(apperrors.CodeProviderBadResponse, "customer creation rejected: "+env.Message, nil)
	}
	var created customerData
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return "", apperrors.Provider(apperrors.CodeProviderBadResponse, "malformed customer response", err)
	}
	return created.CustomerCode, nil
}

// InitializeTransaction creates a checkout and returns its redirect URL
func (p *PaystackClient) InitializeTransaction(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	body := initializeBody{
		Email:       req.Email,
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		CallbackURL: p.callbackURL,
		Metadata:    req.Metadata,
	}

	status, env, err := p.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 || !env.Status {
		return nil, apperrors.Provider(apperrors.CodeProviderBadResponse,
			fmt.Sprintf("checkout creation rejected (status %d): %s", status, env.Message), nil)
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperrors.Provider(apperrors.CodeProviderBadResponse, "malformed checkout response", err)
	}
	if data.Reference == "" || data.AuthorizationURL == "" {
		return nil, apperrors.Provider(apperrors.CodeProviderBadResponse, "checkout response missing reference or url", nil)
	}

	p.logger.WithFields(logrus.Fields{
		"reference": data.Reference,
		"amount":    req.AmountCents,
		"currency":  req.Currency,
	}).Info("Checkout created")

	return &CheckoutSession{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// VerifyTransaction asks the provider for the authoritative transaction state.
// An unknown reference is reported as ProviderStatusNotFound, not as an error.
func (p *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	status, env, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound || (status == http.StatusBadRequest && !env.Status) {
		return &VerifiedTransaction{Reference: reference, Status: ProviderStatusNotFound}, nil
	}
	if status/100 != 2 || !env.Status {
		return nil, apperrors.Provider(apperrors.CodeProviderBadResponse,
			fmt.Sprintf("verification rejected (status %d): %s", status, env.Message), nil)
	}

	var data verifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperrors.Provider(apperrors.CodeProviderBadResponse, "malformed verification response", err)
	}

	txStatus := strings.ToLower(data.Status)
	if txStatus == "" {
		txStatus = ProviderStatusPending
	}
	if data.Reference == "" {
		data.Reference = reference
	}

	return &VerifiedTransaction{
		Reference:   data.Reference,
		Status:      txStatus,
		AmountCents: data.Amount,
		Currency:    strings.ToUpper(data.Currency),
	}, nil
}
