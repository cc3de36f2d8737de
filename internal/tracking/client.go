// Package tracking предоставляет клиент внешней системы отслеживания доставки.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/foodie-express/internal/model"
)

var (
	ErrNotConfigured = errors.New("tracking client not configured")
	// ErrUnknownOrder означает, что трекер ещё не принял заказ в доставку.
	ErrUnknownOrder = errors.New("order unknown to tracker")
	// ErrNoUpdate означает, что по заказу пока нет сведений.
	ErrNoUpdate = errors.New("no delivery update yet")
)

// RateLimitError возвращается, когда трекер просит повторить запрос позже.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("tracker rate limited, retry after %s", e.RetryAfter)
}

// Delivery описывает сведения трекера о доставке одного заказа.
type Delivery struct {
	Order  string     `json:"order"`
	Status string     `json:"status"`
	ETA    *time.Time `json:"eta,omitempty"`
}

// Lifecycle переводит статус доставки в статус заказа.
func (d Delivery) Lifecycle() (model.OrderStatus, bool) {
	return MapStatus(d.Status)
}

// Client инкапсулирует HTTP-взаимодействие с системой отслеживания.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент трекера. Адрес без схемы считается http.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Delivery запрашивает сведения о доставке заказа по его номеру.
// Ответы 204, 404 и 429 возвращаются как ErrNoUpdate, ErrUnknownOrder и *RateLimitError.
func (c *Client) Delivery(ctx context.Context, number string) (Delivery, error) {
	if c == nil || c.baseURL == "" {
		return Delivery{}, ErrNotConfigured
	}

	endpoint := c.baseURL + "/api/orders/" + url.PathEscape(number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Delivery{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Delivery{}, fmt.Errorf("track order %s: %w", number, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return Delivery{}, ErrNoUpdate
	case http.StatusNotFound:
		return Delivery{}, fmt.Errorf("%w: %s", ErrUnknownOrder, number)
	case http.StatusTooManyRequests:
		return Delivery{}, &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	default:
		return Delivery{}, fmt.Errorf("track order %s: unexpected status %d", number, resp.StatusCode)
	}

	var d Delivery
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Delivery{}, fmt.Errorf("decode delivery %s: %w", number, err)
	}
	return d, nil
}

// retryAfter разбирает Retry-After в секундах; иначе пауза нулевая.
func retryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// MapStatus переводит статус системы отслеживания в статус заказа.
// Принимаются как значения вида OUT_FOR_DELIVERY, так и out-for-delivery.
func MapStatus(s string) (model.OrderStatus, bool) {
	status := model.OrderStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if !status.Valid() {
		return "", false
	}
	return status, true
}
