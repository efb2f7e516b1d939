package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"courier-engine/internal/domain/recipient"
	courier_errors "courier-engine/pkg/errors"
)

// Envelope is one send request for one content group. Recipients are already
// resolved; the delivery layer must not re-run subscription or opt-in logic,
// which the settings make explicit by carrying the resolved usernames with
// preferences bypassed.
type Envelope struct {
	ID         uuid.UUID          `json:"id"`
	OrgID      string             `json:"org_id"`
	Subject    string             `json:"subject"`
	Body       string             `json:"body"`
	Sender     string             `json:"sender"`
	Recipients []string           `json:"recipients"`
	Settings   recipient.Settings `json:"recipient_settings"`
}

// Dispatcher hands a rendered digest to the delivery connector.
type Dispatcher interface {
	Send(ctx context.Context, env Envelope) error
}

// HTTPDispatcher posts envelopes to the connector.
type HTTPDispatcher struct {
	client  *http.Client
	baseURL string
}

func NewHTTPDispatcher(baseURL string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (d *HTTPDispatcher) Send(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", courier_errors.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: connector returned %d", courier_errors.ErrDispatchFailed, resp.StatusCode)
	}
	return nil
}
