package models

// NotificationModel is a delivered workflow notification. Rows are written by
// the notification sink after its dedup window check; old rows are archived via
// Lifecycle, never deleted.
type NotificationModel struct {
	Base
	RecipientID string    `json:"recipient_id" gorm:"type:char(36);index;not null"`
	ActorID     string    `json:"actor_id"     gorm:"type:char(36);index"`
	Verb        string    `json:"verb"         gorm:"type:varchar(64);not null"`
	TargetType  string    `json:"target_type"  gorm:"type:varchar(32)"`
	TargetID    string    `json:"target_id"    gorm:"type:char(36);index"`
	Read        bool      `json:"read"         gorm:"default:false"`
	Lifecycle   Lifecycle `json:"lifecycle"    gorm:"type:varchar(16);index;default:active"`
}

func (NotificationModel) TableName() string { return "notifications" }
