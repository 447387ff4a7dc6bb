package domain

import "time"

// ActivityType enumerates activity log entry kinds.
type ActivityType string

const (
	ActivityCall       ActivityType = "call"
	ActivityEmail      ActivityType = "email"
	ActivityMeeting    ActivityType = "meeting"
	ActivityNote       ActivityType = "note"
	ActivityTask       ActivityType = "task"
	ActivityConversion ActivityType = "conversion"
	ActivityEscalation ActivityType = "escalation"
	ActivityMerge      ActivityType = "merge"
)

// UserCreatable reports whether users may log this activity type by hand.
// Workflow types are written only by the workflows themselves.
func (t ActivityType) UserCreatable() bool {
	switch t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask:
		return true
	}
	return false
}

// Activity is an immutable entry in a record's activity log.
type Activity struct {
	ID        int64
	Record    RecordRef
	Type      ActivityType
	Subject   string
	Details   string
	CreatedBy *int64
	CreatedAt time.Time
}

// RecentRecord tracks a record a user opened recently.
type RecentRecord struct {
	ID         int64
	UserID     int64
	Record     RecordRef
	RecordName string
	AccessedAt time.Time
}

// RecentRecordsPerUser caps the recent list kept for each user.
const RecentRecordsPerUser = 20

// AuditAction enumerates audited mutations.
type AuditAction string

const (
	AuditCreate      AuditAction = "create"
	AuditUpdate      AuditAction = "update"
	AuditDelete      AuditAction = "delete"
	AuditChangeOwner AuditAction = "change_owner"
	AuditConvert     AuditAction = "convert"
	AuditEscalate    AuditAction = "escalate"
	AuditMerge       AuditAction = "merge"
)

// AuditLog records who changed what.
type AuditLog struct {
	ID          int64
	UserID      *int64
	Action      AuditAction
	TargetTable string
	TargetID    *int64
	OldValues   map[string]any
	NewValues   map[string]any
	Timestamp   time.Time
}
