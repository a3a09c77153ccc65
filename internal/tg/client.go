package tg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Client is a thin Telegram Bot API client over fasthttp.
// Transient failures (network, 5xx) are retried with exponential backoff.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// NewClient builds a client for the given API base (usually https://api.telegram.org)
// and bot token.
func NewClient(apiBase, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(apiBase, "/") + "/bot" + token,
		http:           &fasthttp.Client{ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUpdates long-polls for updates past offset. timeoutSec is the server-side
// hold time; the request deadline is padded beyond it.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        timeoutSec,
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []Update
	hold := time.Duration(timeoutSec)*time.Second + 10*time.Second
	if err := c.doJSON(ctx, "/getUpdates", req, &updates, false, hold); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	req := sendMessageRequest{ChatID: chatID, Text: text, ReplyMarkup: markup}
	var msg Message
	if err := c.doJSON(ctx, "/sendMessage", req, &msg, true, 0); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendReply sends a message threaded under an earlier one. The reply link is
// dropped server-side when the target message is already gone.
func (c *Client) SendReply(ctx context.Context, chatID, replyTo int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	req := sendMessageRequest{
		ChatID:                   chatID,
		Text:                     text,
		ReplyToMessageID:         replyTo,
		AllowSendingWithoutReply: true,
		ReplyMarkup:              markup,
	}
	var msg Message
	if err := c.doJSON(ctx, "/sendMessage", req, &msg, true, 0); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	req := editMessageTextRequest{ChatID: chatID, MessageID: messageID, Text: text, ReplyMarkup: markup}
	return c.doJSON(ctx, "/editMessageText", req, nil, true, 0)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	req := deleteMessageRequest{ChatID: chatID, MessageID: messageID}
	return c.doJSON(ctx, "/deleteMessage", req, nil, false, 0)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	req := answerCallbackRequest{CallbackQueryID: callbackID, Text: text}
	return c.doJSON(ctx, "/answerCallbackQuery", req, nil, false, 0)
}

// SendPhoto uploads a PNG via multipart/form-data.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (*Message, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return nil, fmt.Errorf("write field: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("photo", "board.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(png); err != nil {
		return nil, fmt.Errorf("write photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/sendPhoto")
	req.Header.SetContentType(mw.FormDataContentType())
	req.SetBody(body.Bytes())

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx, 30*time.Second)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var msg Message
	if err := decodeEnvelope(resp.StatusCode(), resp.Body(), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) doJSON(ctx context.Context, method string, in any, out any, retry bool, timeout time.Duration) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + method)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx, timeout))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		decodeErr := decodeEnvelope(status, resp.Body(), out)
		if decodeErr == nil {
			return nil
		}
		if attempt == attempts || !retry || !shouldRetryStatus(status) {
			return decodeErr
		}
		lastErr = decodeErr
		if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeEnvelope(status int, body []byte, out any) error {
	var env apiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("telegram api error: status=%d body=%s", status, truncate(string(body), 512))
	}
	if !env.OK {
		return fmt.Errorf("telegram api error: code=%d desc=%s", env.ErrorCode, env.Description)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

func (c *Client) computeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	clientDL := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
