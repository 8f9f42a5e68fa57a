package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const smsVerifyURL = "https://api.sms.ir/v1/send/verify"

// SMSService sends verification codes through the sms.ir verify API.
type SMSService struct {
	apiKey     string
	templateID string
	baseURL    string
	client     *http.Client
}

// NewSMSService creates a new SMSService.
func NewSMSService(apiKey, templateID string) *SMSService {
	return &SMSService{
		apiKey:     apiKey,
		templateID: templateID,
		baseURL:    smsVerifyURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type smsVerifyPayload struct {
	Mobile     string         `json:"mobile"`
	TemplateID string         `json:"templateId"`
	Parameters []smsParameter `json:"parameters"`
}

type smsParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SendOTP delivers a verification code to the phone number. Delivery is
// fire-and-forget: failures are logged and never surfaced to the caller.
func (s *SMSService) SendOTP(phoneNumber, code string) error {
	if s.apiKey == "" {
		log.Println("[SMS] API key not configured")
		return nil
	}

	payload := smsVerifyPayload{
		Mobile:     phoneNumber,
		TemplateID: s.templateID,
		Parameters: []smsParameter{
			{Name: "CODE", Value: code},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[SMS] Failed to send OTP to %s: %v", phoneNumber, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SMS] Unexpected status sending OTP to %s: %d", phoneNumber, resp.StatusCode)
		return fmt.Errorf("sms.ir returned status %d", resp.StatusCode)
	}

	return nil
}
