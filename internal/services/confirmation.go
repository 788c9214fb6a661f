package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/mroth/weightedrand/v2"

	"raidbot/internal/models"
)

// SimulatedConfirmation approves claims with a weighted coin flip. This is
// the default verification backend; a real engagement API plugs in through
// HTTPConfirmation instead.
type SimulatedConfirmation struct {
	chooser *weightedrand.Chooser[bool, int]
}

func NewSimulatedConfirmation(successPercent int) (*SimulatedConfirmation, error) {
	if successPercent < 0 {
		successPercent = 0
	}
	if successPercent > 100 {
		successPercent = 100
	}

	chooser, err := weightedrand.NewChooser(
		weightedrand.NewChoice(true, successPercent),
		weightedrand.NewChoice(false, 100-successPercent),
	)
	if err != nil {
		return nil, err
	}

	return &SimulatedConfirmation{chooser}, nil
}

func (client *SimulatedConfirmation) ConfirmAction(ctx context.Context, tweetID string, userID int64, actionType models.ActionType) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return client.chooser.Pick(), nil
}

func (client *SimulatedConfirmation) Method() string {
	return models.VerificationMethodSimulated
}

// HTTPConfirmation asks an engagement API whether the action happened.
// Transient failures are retried with exponential backoff.
type HTTPConfirmation struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

func NewHTTPConfirmation(baseURL, apiKey string, timeout time.Duration) *HTTPConfirmation {
	backoff := heimdall.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2, 50*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(3),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)

	return &HTTPConfirmation{baseURL, apiKey, client}
}

type confirmationResponse struct {
	Confirmed bool `json:"confirmed"`
}

func (client *HTTPConfirmation) ConfirmAction(ctx context.Context, tweetID string, userID int64, actionType models.ActionType) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/engagements/%s", client.baseURL, url.PathEscape(tweetID))
	query := url.Values{}
	query.Set("user_id", fmt.Sprintf("%d", userID))
	query.Set("type", string(actionType))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+client.apiKey)

	res, err := client.client.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return false, fmt.Errorf("engagement api %d: %s", res.StatusCode, body)
	}

	var payload confirmationResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return false, err
	}
	return payload.Confirmed, nil
}

func (client *HTTPConfirmation) Method() string {
	return models.VerificationMethodAPI
}
