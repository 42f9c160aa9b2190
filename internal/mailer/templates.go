package mailer

import (
	"fmt"
	"net/url"
	"strings"
)

// ResetEmail builds the subject and body for a password-reset message.
// The raw token travels only here; storage keeps its hash.
func ResetEmail(baseURL, email, token string) (subject, body string) {
	resetURL := fmt.Sprintf("%s/admin-reset.html?token=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
	subject = "whatsnominated admin password reset"
	body = strings.Join([]string{
		"Password reset requested for whatsnominated admin.",
		"",
		"Account name: " + email,
		"Reset link: " + resetURL,
		"",
		"If you did not request this, you can ignore this email.",
	}, "\n")
	return subject, body
}

// ContactEmail builds the subject and body for a contact-form message.
func ContactEmail(name, email, topic, message string) (subject, body string) {
	subject = "whatsnominated contact: " + topic
	body = strings.Join([]string{
		"New contact form submission:",
		"",
		"Name: " + name,
		"Email: " + email,
		"Topic: " + topic,
		"",
		"Message:",
		message,
	}, "\n")
	return subject, body
}
