package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"skillxchange/domain"
	"skillxchange/errors"
)

// HistoryClient reads the REST history interface.
type HistoryClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHistoryClient(baseURL, token string, httpClient *http.Client) *HistoryClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HistoryClient{baseURL: baseURL, token: token, httpClient: httpClient}
}

type historyPage struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor *string          `json:"nextCursor"`
}

type conversationList struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

type apiError struct {
	Error string `json:"error"`
}

func (c *HistoryClient) History(ctx context.Context, counterpartID string, cursor *string, limit int) ([]domain.Message, *string, error) {
	query := url.Values{}
	if cursor != nil {
		query.Set("cursor", *cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var page historyPage
	path := "/api/conversations/" + url.PathEscape(counterpartID) + "/messages"
	if err := c.get(ctx, path, query, &page); err != nil {
		return nil, nil, err
	}
	return page.Messages, page.NextCursor, nil
}

func (c *HistoryClient) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var list conversationList
	if err := c.get(ctx, "/api/conversations", nil, &list); err != nil {
		return nil, err
	}
	return list.Conversations, nil
}

func (c *HistoryClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var body apiError
		_ = json.NewDecoder(resp.Body).Decode(&body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", errors.ErrAuth, body.Error)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", errors.ErrInvalidPayload, body.Error)
		default:
			return fmt.Errorf("history request failed with status %d: %s", resp.StatusCode, body.Error)
		}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
