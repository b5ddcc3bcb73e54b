package store

import (
	"database/sql"
	"time"
)

type AdminUser struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        sql.NullString `json:"email"`
	DisplayName  string         `json:"display_name"`
	Role         string         `json:"role"`
	PasswordHash string         `json:"-"`
	Active       bool           `json:"active"`
	LastLoginAt  sql.NullTime   `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type AdminAuditLog struct {
	ID            int64          `json:"id"`
	ActorUserID   sql.NullInt64  `json:"actor_user_id"`
	ActorUsername string         `json:"actor_username"`
	ActorRole     string         `json:"actor_role"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	ResourceID    string         `json:"resource_id"`
	Section       sql.NullString `json:"section"`
	Metadata      string         `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

type Campaign struct {
	ID           int64         `json:"id"`
	Subject      string        `json:"subject"`
	BodyMarkdown string        `json:"body_markdown"`
	Status       string        `json:"status"`
	CreatedByID  sql.NullInt64 `json:"created_by_id"`
	Recipients   int64         `json:"recipients"`
	Delivered    int64         `json:"delivered"`
	Failed       int64         `json:"failed"`
	SentAt       sql.NullTime  `json:"sent_at"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type CmsSnapshot struct {
	ID        string    `json:"id"`
	Data      string    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CmsSnapshotVersion struct {
	ID                int64         `json:"id"`
	SnapshotID        string        `json:"snapshot_id"`
	Section           string        `json:"section"`
	Data              string        `json:"data"`
	CreatedByID       sql.NullInt64 `json:"created_by_id"`
	CreatedByUsername string        `json:"created_by_username"`
	Note              string        `json:"note"`
	CreatedAt         time.Time     `json:"created_at"`
}

type Event struct {
	ID         int64         `json:"id"`
	Level      string        `json:"level"`
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	UserID     sql.NullInt64 `json:"user_id"`
	Metadata   string        `json:"metadata"`
	IpAddress  string        `json:"ip_address"`
	RequestUrl string        `json:"request_url"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Lead struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	IpAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

type PageView struct {
	ID             int64     `json:"id"`
	Path           string    `json:"path"`
	ReferrerDomain string    `json:"referrer_domain"`
	VisitorHash    string    `json:"visitor_hash"`
	DeviceType     string    `json:"device_type"`
	Browser        string    `json:"browser"`
	Os             string    `json:"os"`
	CountryCode    string    `json:"country_code"`
	CreatedAt      time.Time `json:"created_at"`
}

type Subscriber struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	UnsubscribeToken string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
