package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// NotifyNewUser reports a first-time OTP signup to the admin chat.
func (s *TelegramService) NotifyNewUser(phoneNumber, fullName string) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>👤 NEW USER</b>
<b>📞 Phone:</b> %s
<b>✏️ Name:</b> %s`,
		phoneNumber,
		fullName,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyPremiumUpgrade reports a premium upgrade (promo code or payment) to
// the admin chat.
func (s *TelegramService) NotifyPremiumUpgrade(phoneNumber, method string, amount float64) error {
	if s.adminChatID == "" {
		return nil
	}

	detail := method
	if amount > 0 {
		detail = fmt.Sprintf("%s (%.0f)", method, amount)
	}

	message := fmt.Sprintf(`<b>⭐ PREMIUM UPGRADE</b>
<b>📞 Phone:</b> %s
<b>💳 Via:</b> %s`,
		phoneNumber,
		detail,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
