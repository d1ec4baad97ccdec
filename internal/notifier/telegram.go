package notifier

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// TelegramNotifier posts messages to a chat via the Telegram Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	retries int
	delay   time.Duration
	client  *http.Client
	log     zerolog.Logger
	baseURL string
}

func NewTelegramNotifier(token, chatID string, retries int, delay time.Duration, log zerolog.Logger) *TelegramNotifier {
	if retries < 1 {
		retries = 1
	}
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		retries: retries,
		delay:   delay,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "telegram").Logger(),
		baseURL: "https://api.telegram.org",
	}
}

func (t *TelegramNotifier) Send(message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.client.PostForm(apiURL, url.Values{
		"chat_id": {t.chatID},
		"text":    {message},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send failed: %s", resp.Status)
	}
	return nil
}

// SendWithRetry retries Send a bounded number of times with a fixed delay
// and returns the last error.
func (t *TelegramNotifier) SendWithRetry(message string) error {
	var err error
	for attempt := 1; attempt <= t.retries; attempt++ {
		err = t.Send(message)
		if err == nil {
			return nil
		}
		t.log.Warn().Err(err).Int("attempt", attempt).Int("max", t.retries).Msg("notification send failed")
		if attempt < t.retries {
			time.Sleep(t.delay)
		}
	}
	return err
}
