package services

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// SMSService delivers OTP codes through the 2factor SMS gateway.
// Delivery is best-effort: failures are logged and reported as false,
// never as errors, so a provider outage cannot fail a signup.
type SMSService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSMSService creates a new SMSService.
func NewSMSService(apiKey string) *SMSService {
	return &SMSService{
		apiKey:  apiKey,
		baseURL: "https://2factor.in/API/V1",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SendOTP sends the code to the phone number and reports delivery success.
func (s *SMSService) SendOTP(phone, code string) bool {
	if s.apiKey == "" {
		log.Println("[SMS] API key not configured, skipping send")
		return false
	}

	endpoint := fmt.Sprintf("%s/%s/SMS/%s/%s/%s",
		s.baseURL,
		url.PathEscape(s.apiKey),
		url.PathEscape(phone),
		url.PathEscape(code),
		url.PathEscape("Your OTP is"),
	)

	resp, err := s.client.Get(endpoint)
	if err != nil {
		log.Printf("[SMS] Failed to send OTP: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SMS] Unexpected status: %d", resp.StatusCode)
		return false
	}

	return true
}
