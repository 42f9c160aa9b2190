// Package audit records security-relevant actions. Writes are a
// best-effort side channel: a failure to record must never abort the
// operation being described, so every storage error here is logged at a
// diagnostic level and discarded.
package audit

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultRetentionDays is the audit retention window when unconfigured.
const DefaultRetentionDays = 90

// List limits.
const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Entry describes one action to record.
type Entry struct {
	Action      string         // Action name, e.g. admin_login.
	Success     bool           // Outcome flag.
	AdminUserID *uint64        // Acting admin ID, when authenticated.
	ActorEmail  string         // Best-effort actor email.
	RequestIP   string         // Request origin address.
	UserAgent   string         // Request user agent.
	Details     map[string]any // Structured detail payload.
}

// Recorder writes and reads audit rows.
type Recorder struct {
	db            *gorm.DB
	retentionDays int
}

// NewRecorder constructs a recorder with the given retention in days.
func NewRecorder(conn *gorm.DB, retentionDays int) *Recorder {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Recorder{db: conn, retentionDays: retentionDays}
}

// Record prunes expired rows opportunistically and appends one entry.
// Errors are swallowed after logging so callers never fail on audit I/O.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.db == nil {
		return
	}
	r.pruneExpired(ctx)

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, errMarshal := json.Marshal(details)
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("audit: marshal details")
		payload = []byte("{}")
	}

	row := models.AuditLog{
		AdminUserID: entry.AdminUserID,
		Action:      entry.Action,
		Success:     entry.Success,
		ActorEmail:  entry.ActorEmail,
		RequestIP:   entry.RequestIP,
		UserAgent:   entry.UserAgent,
		Details:     datatypes.JSON(payload),
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("audit: record entry")
	}
}

// pruneExpired deletes rows older than the retention cutoff. Failures are
// logged and ignored; pruning is housekeeping, not part of the action.
func (r *Recorder) pruneExpired(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -r.retentionDays)
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if res.Error != nil {
		log.WithError(res.Error).Warn("audit: prune expired rows")
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("audit: pruned %d rows older than %s", res.RowsAffected, cutoff.Format(time.RFC3339))
	}
}

// ListQuery filters the audit read path.
type ListQuery struct {
	Action  string // Exact action name; empty matches all.
	Success *bool  // Outcome filter; nil matches all.
	Limit   int    // Row cap; clamped to [1, 500], default 100.
}

// ActionCount is one histogram bucket of the action-name aggregate.
type ActionCount struct {
	Action string `json:"action"` // Action name.
	Count  int64  `json:"count"`  // Row count.
}

// List returns the newest matching rows plus the action histogram across
// all rows, for operator dashboards.
func (r *Recorder) List(ctx context.Context, q ListQuery) ([]models.AuditLog, []ActionCount, error) {
	limit := q.Limit
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}
	if q.Success != nil {
		query = query.Where("success = ?", *q.Success)
	}

	var rows []models.AuditLog
	if errFind := query.Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, nil, errFind
	}

	var actions []ActionCount
	if errAgg := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Select("action, COUNT(*) AS count").
		Group("action").
		Order("action").
		Scan(&actions).Error; errAgg != nil {
		return nil, nil, errAgg
	}
	return rows, actions, nil
}
