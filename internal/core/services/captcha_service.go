package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"

	"go.uber.org/zap"
)

// CaptchaVerifier checks a CAPTCHA response token.
// (false, nil) means the token was rejected; an error means the verifier
// could not give an answer and wraps domain.ErrCaptchaUnavailable.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// RecaptchaVerifier calls Google's siteverify endpoint
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	timeout   time.Duration
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// NewRecaptchaVerifier creates a verifier with a bounded request timeout
func NewRecaptchaVerifier(cfg config.CaptchaConfig) *RecaptchaVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RecaptchaVerifier{
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
	}
}

// Verify posts secret, response and remoteip to the verify endpoint
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrCaptchaUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrCaptchaUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("%w: status %d", domain.ErrCaptchaUnavailable, resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: decode response: %v", domain.ErrCaptchaUnavailable, err)
	}

	return body.Success, nil
}

// permissiveVerifier accepts any non-empty token. Only used in dev without a secret.
type permissiveVerifier struct {
	log *zap.Logger
}

func (v *permissiveVerifier) Verify(_ context.Context, token, _ string) (bool, error) {
	v.log.Warn("captcha accepted without verification (dev mode, RECAPTCHA_SECRET_KEY unset)")
	return token != "", nil
}

// NewCaptchaVerifier picks the verifier for the running mode
func NewCaptchaVerifier(cfg *config.Config, log *zap.Logger) CaptchaVerifier {
	if cfg.Captcha.SecretKey == "" && cfg.IsDev() {
		log.Warn("RECAPTCHA_SECRET_KEY not set, captcha verification disabled")
		return &permissiveVerifier{log: log.Named("captcha")}
	}
	return NewRecaptchaVerifier(cfg.Captcha)
}
