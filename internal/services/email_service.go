package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// EmailService delivers verification links through an HTTP mail provider.
// Like SMSService it is fire-and-forget.
type EmailService struct {
	apiURL    string
	apiKey    string
	siteURL   string
	fromEmail string
	client    *http.Client
}

// NewEmailService creates a new EmailService.
func NewEmailService(apiURL, apiKey, siteURL, fromEmail string) *EmailService {
	return &EmailService{
		apiURL:    apiURL,
		apiKey:    apiKey,
		siteURL:   siteURL,
		fromEmail: fromEmail,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type emailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// SendVerificationEmail emails the activation link for the given token.
func (s *EmailService) SendVerificationEmail(email, token string) {
	if s.apiURL == "" {
		log.Println("[Mail] API URL not configured, skipping send")
		return
	}

	link := fmt.Sprintf("%s/api/verify-email/%s", s.siteURL, token)
	msg := emailMessage{
		From:    s.fromEmail,
		To:      email,
		Subject: "Verify your email",
		Text:    "Please click the following link to verify your email address: " + link,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Mail] Failed to encode message: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[Mail] Failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Mail] Failed to send verification email: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		log.Printf("[Mail] Unexpected status: %d", resp.StatusCode)
	}
}
