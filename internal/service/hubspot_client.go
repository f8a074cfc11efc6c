package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"captia/internal/model"
)

const hubspotEngagementsEndpoint = "/engagements/v1/engagements"

// ErrInvalidContactID is returned when the CRM contact ID is not numeric.
var ErrInvalidContactID = errors.New("invalid_contact_id")

// CRMStatusError is a non-2xx response from the CRM.
type CRMStatusError struct {
	StatusCode int
	Body       string
}

func (e *CRMStatusError) Error() string {
	return fmt.Sprintf("crm returned status %d: %s", e.StatusCode, e.Body)
}

// TimelineWriter writes summaries to a CRM record's timeline.
type TimelineWriter interface {
	CreateNote(ctx context.Context, accessToken, contactID, body string, at time.Time) (*model.TimelineNote, error)
}

type hubspotClient struct {
	client  *http.Client
	baseURL string
}

// NewHubSpotClient creates a TimelineWriter for the HubSpot engagements API.
func NewHubSpotClient(baseURL string, timeout time.Duration) TimelineWriter {
	return &hubspotClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type engagementRequest struct {
	Engagement   engagementHeader       `json:"engagement"`
	Associations engagementAssociations `json:"associations"`
	Metadata     engagementMetadata     `json:"metadata"`
}

type engagementHeader struct {
	Active    bool   `json:"active"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type engagementAssociations struct {
	ContactIDs []int64 `json:"contactIds"`
}

type engagementMetadata struct {
	Body string `json:"body"`
}

type engagementResponse struct {
	Engagement struct {
		ID int64 `json:"id"`
	} `json:"engagement"`
}

// CreateNote creates a NOTE engagement associated with the contact.
func (c *hubspotClient) CreateNote(ctx context.Context, accessToken, contactID, body string, at time.Time) (*model.TimelineNote, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(contactID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContactID, contactID)
	}

	requestBody := engagementRequest{
		Engagement:   engagementHeader{Active: true, Type: "NOTE", Timestamp: at.UnixMilli()},
		Associations: engagementAssociations{ContactIDs: []int64{id}},
		Metadata:     engagementMetadata{Body: body},
	}
	bodyJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engagement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+hubspotEngagementsEndpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create engagement request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read engagement response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &CRMStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out engagementResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode engagement response: %w", err)
	}
	return &model.TimelineNote{
		EngagementID: strconv.FormatInt(out.Engagement.ID, 10),
		ContactID:    contactID,
	}, nil
}
