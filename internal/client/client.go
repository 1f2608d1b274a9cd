// Package client is a typed HTTP client for the relaychat REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d %s", e.Status, e.Code)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

type AuthResponse struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, &users)
	return users, err
}

func (c *Client) User(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+id.String(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteProfile(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/profile", nil, nil)
}

func (c *Client) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &convs)
	return convs, err
}

// OpenConversation returns the conversation with userID, creating it if
// needed.
func (c *Client) OpenConversation(ctx context.Context, userID uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/conversations", map[string]uuid.UUID{"userId": userID}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) ChatPreviews(ctx context.Context) ([]domain.ChatPreview, error) {
	var previews []domain.ChatPreview
	err := c.doJSON(ctx, http.MethodGet, "/api/chat-previews", nil, &previews)
	return previews, err
}

func (c *Client) Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	var msgs []domain.Message
	path := "/api/messages?" + url.Values{"conversationId": {conversationID.String()}}.Encode()
	err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs)
	return msgs, err
}

func (c *Client) SendMessage(ctx context.Context, conversationID uuid.UUID, text string) (*domain.Message, error) {
	var msg domain.Message
	body := map[string]any{"conversationId": conversationID, "text": text}
	if err := c.doJSON(ctx, http.MethodPost, "/api/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendFile uploads r as an attachment.
func (c *Client) SendFile(ctx context.Context, conversationID uuid.UUID, text, fileName string, r io.Reader) (*domain.Message, error) {
	fields := map[string]string{"conversationId": conversationID.String(), "text": text}
	var msg domain.Message
	if err := c.doMultipart(ctx, http.MethodPost, "/api/messages/file", fields, "file", fileName, r, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) SendAudio(ctx context.Context, conversationID uuid.UUID, r io.Reader) (*domain.Message, error) {
	fields := map[string]string{"conversationId": conversationID.String()}
	var msg domain.Message
	if err := c.doMultipart(ctx, http.MethodPost, "/api/messages/audio", fields, "audio", "audio.webm", r, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateProfile changes name and/or avatar; image may be nil.
func (c *Client) UpdateProfile(ctx context.Context, name, imageName string, image io.Reader) (*domain.User, error) {
	fields := map[string]string{}
	if name != "" {
		fields["name"] = name
	}
	fileField := ""
	if image != nil {
		fileField = "image"
	}
	var user domain.User
	if err := c.doMultipart(ctx, http.MethodPut, "/api/users/profile", fields, fileField, imageName, image, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type StatusUpdate struct {
	Delivered bool
	Read      bool
}

func (c *Client) MarkStatus(ctx context.Context, messageID uuid.UUID, update StatusUpdate) (*domain.Message, error) {
	body := map[string]any{"messageId": messageID}
	if update.Delivered {
		body["delivered"] = true
	}
	if update.Read {
		body["read"] = true
	}
	var msg domain.Message
	if err := c.doJSON(ctx, http.MethodPatch, "/api/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) React(ctx context.Context, messageID uuid.UUID, emoji string, action domain.ReactionAction) (*domain.Message, error) {
	body := map[string]any{
		"messageId": messageID,
		"reaction":  map[string]string{"emoji": emoji},
		"action":    action,
	}
	var msg domain.Message
	if err := c.doJSON(ctx, http.MethodPatch, "/api/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/messages", map[string]uuid.UUID{"messageId": messageID}, nil)
}

// DeleteMessages removes several messages in one request and returns the
// IDs the server deleted.
func (c *Client) DeleteMessages(ctx context.Context, messageIDs []uuid.UUID) ([]uuid.UUID, error) {
	var resp struct {
		Deleted []uuid.UUID `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/messages", map[string][]uuid.UUID{"messageIds": messageIDs}, &resp); err != nil {
		return nil, err
	}
	return resp.Deleted, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("encoding form: %w", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			return fmt.Errorf("encoding form: %w", err)
		}
		if _, err := io.Copy(fw, file); err != nil {
			return fmt.Errorf("encoding form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("encoding form: %w", err)
	}
	return c.do(ctx, method, path, mw.FormDataContentType(), &buf, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Error.Code != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
		apiErr.Fields = body.Error.Fields
	} else {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
