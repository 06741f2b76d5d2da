// Package push delivers encoded notification envelopes to device endpoints.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrDelivery is returned when the gateway rejects or fails a delivery.
	ErrDelivery = errors.New("push delivery failed")
	// ErrGatewayUnavailable is returned while the circuit breaker is open.
	ErrGatewayUnavailable = errors.New("push gateway unavailable")
	// ErrEndpointRejected is returned when the gateway refuses a single
	// endpoint (4xx). It also matches ErrDelivery.
	ErrEndpointRejected = errors.New("push endpoint rejected")
)

// Gateway publishes messages through an HTTP push gateway (for example an
// SNS or FCM relay). It never retries; a tripped breaker fails fast so one
// dead gateway does not stall the whole dispatch run.
type Gateway struct {
	url     string
	token   string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

type publishRequest struct {
	Endpoint         string `json:"endpoint"`
	Message          string `json:"message"`
	MessageStructure string `json:"messageStructure"`
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

// NewGateway creates a Gateway posting to url with an optional bearer token.
func NewGateway(client *http.Client, url, token string) *Gateway {
	return &Gateway{
		url:    url,
		token:  token,
		client: client,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "push-gateway",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			// A dead or disabled endpoint says nothing about the gateway's health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrEndpointRejected)
			},
		}),
	}
}

// Deliver publishes message to endpoint and returns the gateway message id.
func (g *Gateway) Deliver(ctx context.Context, endpoint, message string) (string, error) {
	body, err := json.Marshal(publishRequest{
		Endpoint:         endpoint,
		Message:          message,
		MessageStructure: "json",
	})
	if err != nil {
		return "", fmt.Errorf("encode publish request: %w", err)
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		return g.publish(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

func (g *Gateway) publish(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w: status %d: %s", ErrDelivery, ErrEndpointRejected, resp.StatusCode, bytes.TrimSpace(msg))
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrDelivery, err)
	}
	if out.MessageID == "" {
		return "", fmt.Errorf("%w: empty message id", ErrDelivery)
	}
	return out.MessageID, nil
}
