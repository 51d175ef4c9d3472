package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	parseModeHTML  = "HTML"
)

// APIError is returned when the Bot API answers ok=false.
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram error %d: %s (retry after %s)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Description)
}

// Client is a minimal Bot API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type sendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type sendDocumentRequest struct {
	ChatID    int64  `json:"chat_id"`
	Document  string `json:"document"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

// NewClient creates a client for the bot identified by token.
func NewClient(apiURL, token string, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse telegram url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("telegram url must be absolute")
	}
	if token == "" {
		return nil, fmt.Errorf("telegram token must be provided")
	}
	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/") + "/bot" + token + "/",
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+requestTimeout)
	defer cancel()

	var updates []Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}, &updates)
	return updates, err
}

// SendMessage sends HTML text with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}, nil)
}

// SendDocument re-sends an uploaded file by its file id.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.call(ctx, "sendDocument", sendDocumentRequest{
		ChatID:    chatID,
		Document:  fileID,
		Caption:   caption,
		ParseMode: parseModeHTML,
	}, nil)
}

// AnswerCallbackQuery stops the client-side loading indicator.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: callbackID, Text: text}, nil)
}

// SendText implements the core notifier.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.SendMessage(ctx, chatID, text, nil)
}

// SendFile implements the core notifier.
func (c *Client) SendFile(ctx context.Context, chatID int64, fileRef, caption string) error {
	return c.SendDocument(ctx, chatID, fileRef, caption)
}

func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}

	var data response
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error("telegram request failed", slog.String("method", method), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%s: unexpected response: %s", method, resp.Status)
	}
	if !data.OK {
		apiErr := &APIError{Code: data.ErrorCode, Description: data.Description}
		if data.Parameters != nil && data.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(data.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(data.Result, result)
}

// redact drops the request URL, which embeds the bot token.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
