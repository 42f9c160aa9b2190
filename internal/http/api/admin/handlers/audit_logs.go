package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whatsnominated/backend/internal/audit"
	internalhttp "github.com/whatsnominated/backend/internal/http"
)

// AuditLogHandler exposes the audit trail to the admin UI.
type AuditLogHandler struct {
	recorder *audit.Recorder
	cookie   internalhttp.CookieConfig
}

// NewAuditLogHandler constructs an AuditLogHandler.
func NewAuditLogHandler(recorder *audit.Recorder, cookie internalhttp.CookieConfig) *AuditLogHandler {
	return &AuditLogHandler{recorder: recorder, cookie: cookie}
}

// auditLogResponse is one audit row shaped for the UI.
type auditLogResponse struct {
	ID          uint64         `json:"id"`
	AdminUserID *uint64        `json:"adminUserId"`
	Action      string         `json:"action"`
	Success     bool           `json:"success"`
	ActorEmail  string         `json:"actorEmail"`
	RequestIP   string         `json:"requestIp"`
	UserAgent   string         `json:"userAgent"`
	Details     map[string]any `json:"details"`
	CreatedAt   string         `json:"createdAt"`
}

// List returns filtered audit rows with the action histogram. Reading
// the log is itself recorded.
func (h *AuditLogHandler) List(c *gin.Context) {
	action := strings.TrimSpace(c.Query("action"))
	successRaw := strings.ToLower(strings.TrimSpace(c.DefaultQuery("success", "all")))
	limit, errParse := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if errParse != nil {
		limit = 100
	}

	query := audit.ListQuery{Action: action, Limit: limit}
	switch successRaw {
	case "0":
		off := false
		query.Success = &off
	case "1":
		on := true
		query.Success = &on
	}

	rows, actions, errList := h.recorder.List(c.Request.Context(), query)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
		return
	}

	logs := make([]auditLogResponse, 0, len(rows))
	for _, row := range rows {
		details := map[string]any{}
		if errDecode := json.Unmarshal(row.Details, &details); errDecode != nil {
			details = map[string]any{"raw": string(row.Details)}
		}
		logs = append(logs, auditLogResponse{
			ID:          row.ID,
			AdminUserID: row.AdminUserID,
			Action:      row.Action,
			Success:     row.Success,
			ActorEmail:  row.ActorEmail,
			RequestIP:   row.RequestIP,
			UserAgent:   row.UserAgent,
			Details:     details,
			CreatedAt:   row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	identity := internalhttp.IdentityFromContext(c)
	meta := internalhttp.ClientMeta(c, h.cookie.TrustProxy)
	entry := audit.Entry{
		Action:    "admin_audit_logs_view",
		Success:   true,
		RequestIP: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   map[string]any{"limit": limit, "action": action, "success": successRaw},
	}
	if identity != nil {
		entry.AdminUserID = &identity.UserID
		entry.ActorEmail = identity.Email
	}
	h.recorder.Record(c.Request.Context(), entry)

	c.JSON(http.StatusOK, gin.H{
		"logs":    logs,
		"actions": actions,
		"filters": gin.H{"action": action, "success": successRaw, "limit": limit},
	})
}
