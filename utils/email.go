package utils

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional email
type Mailer interface {
	Send(toName, toEmail, subject, textContent, htmlContent string) error
}

// SendGridMailer sends mail through the SendGrid API
type SendGridMailer struct {
	APIKey    string
	FromName  string
	FromEmail string
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{APIKey: apiKey, FromName: "Style Assistant", FromEmail: "no-reply@styleassistant.app"}
}

// Send sends an email using SendGrid
func (m *SendGridMailer) Send(toName, toEmail, subject, textContent, htmlContent string) error {
	if m.APIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}

	from := mail.NewEmail(m.FromName, m.FromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(m.APIKey)

	response, err := client.Send(message)
	if err != nil {
		Log.Errorw("Error sending email", "to", toEmail, "error", err)
		return err
	}

	if response.StatusCode >= 400 {
		Log.Errorw("SendGrid API error", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	Log.Infow("Email sent", "to", toEmail, "status", response.StatusCode)
	return nil
}

// SendOTP mails a one-time code
func SendOTP(m Mailer, name, email, purpose, otp string) error {
	return m.Send(name, email, purpose,
		fmt.Sprintf("Your OTP is: %s", otp),
		fmt.Sprintf("<h1>Your OTP is: <strong>%s</strong></h1>", otp))
}

// SendWardrobeConsent confirms that wardrobe scanning was enabled for email
func SendWardrobeConsent(m Mailer, name, email string) error {
	return m.Send(name, email, "Your digital wardrobe is connected",
		"We will look for clothing receipts in this inbox to build your digital wardrobe. Reply STOP to disconnect.",
		"<p>We will look for clothing receipts in this inbox to build your <strong>digital wardrobe</strong>.</p><p>Reply STOP to disconnect.</p>")
}
