package domain

import "time"

type AuthUser struct {
	ID        int64     `json:"id,string" form:"id"`
	Email     string    `gorm:"uniqueIndex" json:"email" form:"email"`
	Password  string    `json:"-" form:"-"`
	Verified  bool      `json:"verified"`
	Status    string    `json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (AuthUser) TableName() string {
	return "auth_user"
}

// AuthToken stores one-shot verification tokens and revoked session JWT ids.
// Kind is "verify" or "revoked".
type AuthToken struct {
	ID        int64     `json:"id,string"`
	UserID    int64     `gorm:"index" json:"user_id,string"`
	Kind      string    `gorm:"size:16;index" json:"kind"`
	Token     string    `gorm:"uniqueIndex;size:64" json:"token"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (AuthToken) TableName() string {
	return "auth_token"
}
