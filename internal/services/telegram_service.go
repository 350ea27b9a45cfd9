package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/boldbrew/internal/models"
)

// TelegramService pushes order events to the admin chat. Every method is
// best effort; a notification failure never fails the request that
// triggered it.
type TelegramService struct {
	botToken    string
	adminChatID string
	httpClient  *http.Client
}

func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		logrus.Debug("[Telegram] bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		logrus.WithError(err).Warn("[Telegram] failed to send message")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logrus.WithField("status", resp.StatusCode).Warn("[Telegram] unexpected status")
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		logrus.Debug("[Telegram] admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// FormatPrice formats an amount in rupees with thousand separators.
func FormatPrice(amount float64) string {
	str := fmt.Sprintf("%d", int64(amount))

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return "₹" + result.String()
}

// NotifyPaymentVerified announces a verified payment and its order to the
// admin chat.
func (s *TelegramService) NotifyPaymentVerified(order *models.Order) error {
	if s.adminChatID == "" {
		return nil
	}

	var itemsList strings.Builder
	for i, item := range order.Items {
		itemTotal := item.UnitPrice * float64(item.Quantity)
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			item.Name,
			item.Quantity,
			FormatPrice(item.UnitPrice),
			FormatPrice(itemTotal),
		))
	}

	message := fmt.Sprintf(`<b>☕ NEW ORDER!</b>
<b>📋 Payment:</b> %s
<b>👤 Customer:</b> %s
<b>📞 Phone:</b> %s
<b>📍 City:</b> %s, %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
━━━━━━━━━━━━━━━━━━
<i>Bold &amp; Brew</i>`,
		order.RazorpayPaymentID,
		order.Shipping.FullName,
		order.Shipping.Phone,
		order.Shipping.City,
		order.Shipping.State,
		itemsList.String(),
		FormatPrice(order.Total),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyVerificationFailure flags a signature mismatch to the admin chat.
// These are either tampering attempts or gateway misconfiguration and
// deserve a human look.
func (s *TelegramService) NotifyVerificationFailure(orderID, paymentID string) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>⚠️ PAYMENT VERIFICATION FAILED</b>
<b>📋 Order:</b> %s
<b>💳 Payment:</b> %s
<b>📍 Status:</b> signature mismatch, order NOT recorded
━━━━━━━━━━━━━━━━━━
<i>Bold &amp; Brew</i>`,
		orderID,
		paymentID,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyShipmentBooked announces a successful carrier booking.
func (s *TelegramService) NotifyShipmentBooked(order *models.Order) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>🚚 SHIPMENT BOOKED</b>
<b>📋 Order:</b> %s
<b>🏷 Shiprocket Order:</b> %s
<b>📦 Shipment:</b> %s
━━━━━━━━━━━━━━━━━━
<i>Bold &amp; Brew</i>`,
		order.ID,
		order.ShiprocketOrderID,
		order.ShiprocketShipmentID,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
