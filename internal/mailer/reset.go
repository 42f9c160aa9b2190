package mailer

// ResetSender adapts a Sender to the password-reset delivery hook.
type ResetSender struct {
	sender Sender
}

// NewResetSender constructs a ResetSender.
func NewResetSender(sender Sender) *ResetSender {
	return &ResetSender{sender: sender}
}

// SendReset mails the reset link for an account to its own address.
func (r *ResetSender) SendReset(email, rawToken, baseURL string) error {
	subject, body := ResetEmail(baseURL, email, rawToken)
	return r.sender.Send(email, subject, body)
}
