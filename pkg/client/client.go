package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bizchat/internal/domain"
)

// Client calls the chat REST API and unwraps response envelopes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents an error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewClient constructs an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		code := env.Error
		if code == "" {
			code = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Code: code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// ListConversations fetches conversations for a business, optionally filtered
// by a customer-name search term.
func (c *Client) ListConversations(ctx context.Context, businessID, search string) ([]domain.Conversation, error) {
	path := "/api/conversations/business/" + url.PathEscape(businessID)
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var conversations []domain.Conversation
	if err := c.do(ctx, http.MethodGet, path, nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetConversation fetches a single conversation by id.
func (c *Client) GetConversation(ctx context.Context, id int64) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.do(ctx, http.MethodGet, "/api/conversations/"+strconv.FormatInt(id, 10), nil, &conv)
	return conv, err
}

// MessagePage is the paged message history for a conversation.
type MessagePage struct {
	Messages     []domain.Message    `json:"messages"`
	Conversation domain.Conversation `json:"conversation"`
	Pagination   struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Total  int `json:"total"`
	} `json:"pagination"`
}

// ListMessages fetches message history ascending by time. limit <= 0 uses the
// server default.
func (c *Client) ListMessages(ctx context.Context, conversationID int64, limit, offset int) (MessagePage, error) {
	path := "/api/conversations/" + strconv.FormatInt(conversationID, 10) + "/messages"
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var page MessagePage
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

// SendMessageInput is the body for SendMessage.
type SendMessageInput struct {
	Content    string `json:"content"`
	SenderID   string `json:"senderId"`
	SenderType string `json:"senderType"`
}

// SendMessage posts a text message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, input SendMessageInput) (domain.Message, error) {
	var msg domain.Message
	err := c.do(ctx, http.MethodPost, "/api/conversations/"+strconv.FormatInt(conversationID, 10)+"/messages", input, &msg)
	return msg, err
}

// UpdateConversationStatus patches a conversation's status.
func (c *Client) UpdateConversationStatus(ctx context.Context, id int64, status domain.ConversationStatus) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.do(ctx, http.MethodPatch, "/api/conversations/"+strconv.FormatInt(id, 10)+"/status",
		map[string]string{"status": string(status)}, &conv)
	return conv, err
}

// GetBusiness fetches business info.
func (c *Client) GetBusiness(ctx context.Context, businessID string) (domain.Business, error) {
	var business domain.Business
	err := c.do(ctx, http.MethodGet, "/api/business/"+url.PathEscape(businessID), nil, &business)
	return business, err
}

// UpdateBusinessStatus patches the business presence status.
func (c *Client) UpdateBusinessStatus(ctx context.Context, businessID string, status domain.BusinessStatus) (domain.Business, error) {
	var business domain.Business
	err := c.do(ctx, http.MethodPatch, "/api/business/"+url.PathEscape(businessID)+"/status",
		map[string]string{"status": string(status)}, &business)
	return business, err
}

// BusinessStats fetches aggregate statistics.
func (c *Client) BusinessStats(ctx context.Context, businessID string) (domain.BusinessStats, error) {
	var stats domain.BusinessStats
	err := c.do(ctx, http.MethodGet, "/api/business/"+url.PathEscape(businessID)+"/stats", nil, &stats)
	return stats, err
}
