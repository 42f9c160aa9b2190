package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/mailer"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/gorm"
)

// ContactHandler accepts contact-form submissions. The email delivery is
// best-effort; the submission row always records the outcome.
type ContactHandler struct {
	db      *gorm.DB
	sender  mailer.Sender
	support string
}

// NewContactHandler constructs a ContactHandler delivering to the support
// address.
func NewContactHandler(db *gorm.DB, sender mailer.Sender, supportAddress string) *ContactHandler {
	return &ContactHandler{db: db, sender: sender, support: supportAddress}
}

// contactRequest defines the contact-form body.
type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

// Submit validates, mails and persists one submission.
func (h *ContactHandler) Submit(c *gin.Context) {
	var body contactRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	email := strings.TrimSpace(body.Email)
	topic := strings.TrimSpace(body.Topic)
	message := strings.TrimSpace(body.Message)
	if name == "" || email == "" || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Name, email, and message are required."})
		return
	}

	sent := true
	sendError := ""
	mailTopic := topic
	if mailTopic == "" {
		mailTopic = "General"
	}
	subject, mailBody := mailer.ContactEmail(name, email, mailTopic, message)
	if errSend := h.sender.SendWithReplyTo(h.support, email, subject, mailBody); errSend != nil {
		sent = false
		sendError = errSend.Error()
		log.WithError(errSend).Warn("contact: email delivery failed")
	}

	submission := models.ContactSubmission{
		Name:      name,
		Email:     email,
		Topic:     topic,
		Message:   message,
		Sent:      sent,
		SendError: sendError,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&submission).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"sent":    sent,
		"message": "Thanks. Your message has been received.",
	})
}
