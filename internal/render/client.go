package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"courier-engine/internal/digest"
	courier_errors "courier-engine/pkg/errors"
)

// Email is a rendered digest ready for dispatch.
type Email struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Renderer is the external template collaborator. The engine only decides
// which template to ask for; rendering itself lives elsewhere.
type Renderer interface {
	Render(ctx context.Context, template string, group digest.Group) (Email, error)
}

// HTTPRenderer posts digest sections to the template service.
type HTTPRenderer struct {
	client  *http.Client
	baseURL string
}

func NewHTTPRenderer(baseURL string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type renderRequest struct {
	Template string           `json:"template"`
	OrgID    string           `json:"org_id"`
	Sections []digest.Section `json:"sections"`
}

func (r *HTTPRenderer) Render(ctx context.Context, template string, group digest.Group) (Email, error) {
	body, err := json.Marshal(renderRequest{
		Template: template,
		OrgID:    group.OrgID,
		Sections: group.Sections,
	})
	if err != nil {
		return Email{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return Email{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Email{}, fmt.Errorf("%w: %v", courier_errors.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Email{}, fmt.Errorf("%w: template %s returned %d", courier_errors.ErrRenderFailed, template, resp.StatusCode)
	}
	var email Email
	if err := json.NewDecoder(resp.Body).Decode(&email); err != nil {
		return Email{}, fmt.Errorf("%w: %v", courier_errors.ErrRenderFailed, err)
	}
	return email, nil
}
