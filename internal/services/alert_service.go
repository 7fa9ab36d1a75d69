package services

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AlertService pushes gate events to the security admin chat. A missing
// token degrades to a no-op so the gate flow never depends on Telegram.
type AlertService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewAlertService connects the bot; on any failure alerts are disabled.
func NewAlertService(botToken string, chatID int64) *AlertService {
	if botToken == "" || chatID == 0 {
		log.Println("[Alert] Telegram alerts not configured")
		return &AlertService{}
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Printf("[Alert] Telegram bot init failed: %v", err)
		return &AlertService{}
	}
	return &AlertService{bot: bot, chatID: chatID}
}

func (s *AlertService) send(text string) {
	if s == nil || s.bot == nil {
		return
	}
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		log.Printf("[Alert] send failed: %v", err)
	}
}

// NotifyVehicleEntered alerts the admin chat that a vehicle was sent in.
func (s *AlertService) NotifyVehicleEntered(orderNumber, vehicleNo, driverName string) {
	s.send(formatVehicleEntered(orderNumber, vehicleNo, driverName))
}

// NotifyGateRejected alerts the admin chat about a rejected gate pass.
func (s *AlertService) NotifyGateRejected(orderNumber, reason string) {
	s.send(formatGateRejected(orderNumber, reason))
}

// NotifyEmergencyOverride alerts the admin chat that a supervisor
// forced a flagged pass through.
func (s *AlertService) NotifyEmergencyOverride(orderNumber, reason string) {
	s.send(formatEmergencyOverride(orderNumber, reason))
}

func formatVehicleEntered(orderNumber, vehicleNo, driverName string) string {
	if driverName == "" {
		driverName = "-"
	}
	return strings.TrimSpace(fmt.Sprintf(`<b>🚚 VEHICLE ENTERED</b>
<b>Order:</b> %s
<b>Vehicle:</b> %s
<b>Driver:</b> %s`, orderNumber, vehicleNo, driverName))
}

func formatGateRejected(orderNumber, reason string) string {
	return strings.TrimSpace(fmt.Sprintf(`<b>⛔ GATE PASS REJECTED</b>
<b>Order:</b> %s
<b>Reason:</b> %s`, orderNumber, reason))
}

func formatEmergencyOverride(orderNumber, reason string) string {
	return strings.TrimSpace(fmt.Sprintf(`<b>🚨 EMERGENCY OVERRIDE</b>
<b>Order:</b> %s
<b>Reason:</b> %s
<b>Action:</b> vehicle sent in by supervisor`, orderNumber, reason))
}
