package chat

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

	"clinic-chat/models"
)

// HistoryAPI is the durable store as seen by the client.
type HistoryAPI interface {
	// Conversation returns every message exchanged between user1 and user2.
	Conversation(ctx context.Context, user1, user2 string) ([]models.Message, error)
	// Received returns every message addressed to receiverID.
	Received(ctx context.Context, receiverID string) ([]models.Message, error)
	// DoctorChat returns every message involving the doctor, across counterparts.
	DoctorChat(ctx context.Context, doctorID string) ([]models.Message, error)
	// Register persists a message.
	Register(ctx context.Context, msg models.Message) error
}

// HistoryClient talks to the durable store over HTTP.
type HistoryClient struct {
	baseURL string
	http    *http.Client
}

func NewHistoryClient(baseURL string, timeout time.Duration) *HistoryClient {
	return &HistoryClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
}

func (c *HistoryClient) Conversation(ctx context.Context, user1, user2 string) ([]models.Message, error) {
	return c.fetch(ctx, "/api/messages/history", url.Values{"user1": {user1}, "user2": {user2}})
}

func (c *HistoryClient) Received(ctx context.Context, receiverID string) ([]models.Message, error) {
	return c.fetch(ctx, "/api/messages/history", url.Values{"receiverId": {receiverID}})
}

func (c *HistoryClient) DoctorChat(ctx context.Context, doctorID string) ([]models.Message, error) {
	return c.fetch(ctx, "/api/messages/doctor-chat", url.Values{"doctorId": {doctorID}})
}

func (c *HistoryClient) Register(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	const path = "/api/messages/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, path); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *HistoryClient) fetch(ctx context.Context, path string, query url.Values) ([]models.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, path); err != nil {
		return nil, err
	}

	var payload messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if payload.Messages == nil {
		payload.Messages = []models.Message{}
	}
	return payload.Messages, nil
}

func (c *HistoryClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{
		Method: resp.Request.Method,
		Path:   path,
		Code:   resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
