// utils/sms_service.go
package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SMSService sends OTP messages through the BestSMSBulk API.
type SMSService struct {
	Username string
	Password string
	SenderID string
	APIPath  string
	Client   *http.Client
	Logger   *zap.Logger
}

// SMSResponse represents the response from BestSMSBulk API
type SMSResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"message_id"`
		Cost      string `json:"cost"`
	} `json:"data"`
}

// NewSMSService creates a new SMS service instance
func NewSMSService(username, password, senderID, apiPath string, logger *zap.Logger) *SMSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSService{
		Username: username,
		Password: password,
		SenderID: senderID,
		APIPath:  apiPath,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Logger:   logger,
	}
}

// SendOTP sends an OTP to an E.164 phone number.
func (s *SMSService) SendOTP(ctx context.Context, phoneNumber, otp string) error {
	if !strings.HasPrefix(phoneNumber, "+") {
		phoneNumber = "+" + phoneNumber
	}

	params := url.Values{}
	params.Set("username", s.Username)
	params.Set("password", s.Password)
	params.Set("senderid", s.SenderID)
	params.Set("destination", phoneNumber)
	params.Set("message", otp)
	params.Set("route", "wp") // wp = WhatsApp route
	params.Set("template", "otp")
	params.Set("variables", otp)

	fullURL := fmt.Sprintf("%s?%s", s.APIPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
	if err != nil {
		return eris.Wrap(err, "failed to create SMS request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", "Barrim-OTP-Service/1.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return eris.Wrap(err, "failed to send SMS request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "failed to read SMS response body")
	}

	s.Logger.Debug("SMS API response",
		zap.String("destination", MaskPhone(phoneNumber)),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("SMS API returned status %d: %s", resp.StatusCode, string(body))
	}

	var smsResp SMSResponse
	if err := json.Unmarshal(body, &smsResp); err != nil {
		// Some routes answer with plain text
		responseStr := strings.ToLower(strings.TrimSpace(string(body)))
		if strings.Contains(responseStr, "success") || strings.Contains(responseStr, "sent") {
			return nil
		}
		return eris.Wrap(err, "failed to parse SMS response")
	}

	if smsResp.Status == "success" || smsResp.Status == "sent" {
		s.Logger.Info("SMS sent",
			zap.String("destination", MaskPhone(phoneNumber)),
			zap.String("messageId", smsResp.Data.MessageID))
		return nil
	}

	return eris.Errorf("SMS sending failed: %s", smsResp.Message)
}
