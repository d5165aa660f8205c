package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNoInstance = errors.New("whatsapp instance not configured")

type Sender interface {
	Send(ctx context.Context, instance, phone, text string) error
	ProviderID() string
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("evolution api returned %d: %s", e.StatusCode, e.Body)
}

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone keeps only digits, which is the format Evolution expects.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// EvolutionSender posts text messages to an Evolution API server.
type EvolutionSender struct {
	baseURL         string
	apiKey          string
	defaultInstance string
	http            *http.Client
}

func NewEvolutionSender(baseURL, apiKey, defaultInstance string) *EvolutionSender {
	return &EvolutionSender{
		baseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:          strings.TrimSpace(apiKey),
		defaultInstance: strings.TrimSpace(defaultInstance),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (s *EvolutionSender) ProviderID() string {
	return "evolution"
}

func (s *EvolutionSender) Send(ctx context.Context, instance, phone, text string) error {
	if s.baseURL == "" {
		return errors.New("evolution api url not configured")
	}
	instance = strings.TrimSpace(instance)
	if instance == "" {
		instance = s.defaultInstance
	}
	if instance == "" {
		return ErrNoInstance
	}
	number := NormalizePhone(phone)
	if number == "" {
		return fmt.Errorf("invalid phone %q", phone)
	}

	raw, err := json.Marshal(map[string]string{"number": number, "text": text})
	if err != nil {
		return err
	}
	endpoint := s.baseURL + "/message/sendText/" + url.PathEscape(instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NoopSender logs instead of sending. Used when no provider is configured.
type NoopSender struct {
	logger *slog.Logger
}

func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) ProviderID() string {
	return "noop"
}

func (s *NoopSender) Send(_ context.Context, instance, phone, text string) error {
	s.logger.Info("whatsapp message suppressed", "instance", instance, "phone", NormalizePhone(phone), "chars", len(text))
	return nil
}
