package telegram

// Package telegram sends best-effort plain text alerts to one chat.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	logging "balance-watch/internal/infra/log"
	"balance-watch/internal/infra/retry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ErrDisabled is returned by Notify when no credentials are configured.
var ErrDisabled = errors.New("telegram notifier disabled")

// Sender is implemented by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Options struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
	// Endpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	Endpoint string
}

type Notifier struct {
	sender  Sender
	chatID  int64
	channel string
	timeout time.Duration
}

// New returns a disabled notifier when the token or chat id is missing or the chat id is malformed.
// The bot is not contacted here; every Notify is attempted on its own.
func New(opts Options) *Notifier {
	if opts.BotToken == "" || opts.ChatID == "" {
		logging.LogInfo("Telegram credentials not set, alerts disabled")
		return &Notifier{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	// built by hand: NewBotAPIWithClient calls getMe and fails on a transient outage
	bot := &tgbotapi.BotAPI{
		Token:  opts.BotToken,
		Client: &statusClient{client: &http.Client{Timeout: opts.Timeout}},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	n, err := NewWithSender(bot, opts.ChatID, opts.Timeout)
	if err != nil {
		logging.LogWarn("Telegram chat id invalid, alerts disabled", zap.String("chat_id", opts.ChatID), zap.Error(err))
		return &Notifier{}
	}
	logging.LogInfo("Telegram alerts enabled", zap.String("chat_id", opts.ChatID))
	return n
}

// NewWithSender builds a notifier around an existing sender. chatID is a numeric id or an @channel name.
func NewWithSender(sender Sender, chatID string, timeout time.Duration) (*Notifier, error) {
	n := &Notifier{sender: sender, timeout: timeout}
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") && len(chatID) > 1 {
		n.channel = chatID
		return n, nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("chat id %q is neither numeric nor @channel", chatID)
	}
	n.chatID = id
	return n, nil
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Notify sends text as a plain message with link previews disabled.
// 429 and 5xx answers, JSON or not, are retried once. Callers discard the error.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	var msg tgbotapi.MessageConfig
	if n.channel != "" {
		msg = tgbotapi.NewMessageToChannel(n.channel, text)
	} else {
		msg = tgbotapi.NewMessage(n.chatID, text)
	}
	msg.DisableWebPagePreview = true

	return retry.Do(ctx, retry.Options{
		MaxRetries: 1,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}, func() error {
		return n.send(ctx, msg)
	})
}

// send waits for the bot call or ctx, whichever ends first.
func (n *Notifier) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	done := make(chan error, 1)
	go func() {
		_, err := n.sender.Send(msg)
		done <- asRetryable(err)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func asRetryable(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500) {
		return &retry.HTTPError{
			StatusCode: apiErr.Code,
			Body:       []byte(apiErr.Message),
			RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
		}
	}
	return err
}

// statusClient turns 429/5xx answers without a JSON body (proxy error pages) into
// retry.HTTPError; tgbotapi would otherwise report them as a decode error.
type statusClient struct {
	client *http.Client
}

func (c *statusClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
		return resp, nil
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Body: body}
}
