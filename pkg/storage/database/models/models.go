package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Permission uint8

const (
	ReadOnly Permission = 1 << iota
	AllowCopy
	AllowDownload
)

const allPermissions = ReadOnly | AllowCopy | AllowDownload

var permissionNames = []struct {
	flag Permission
	name string
}{
	{ReadOnly, "read_only"},
	{AllowCopy, "allow_copy"},
	{AllowDownload, "allow_download"},
}

func (p Permission) Has(flag Permission) bool {
	return p&flag == flag
}

// Valid reports whether p is non-empty and only carries known flags.
func (p Permission) Valid() bool {
	return p != 0 && p&^allPermissions == 0
}

func (p Permission) Names() []string {
	names := []string{}
	for _, n := range permissionNames {
		if p.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return names
}

func (p Permission) String() string {
	return strings.Join(p.Names(), "|")
}

func ParsePermission(names []string) (Permission, error) {
	var p Permission
	for _, name := range names {
		found := false
		for _, n := range permissionNames {
			if n.name == name {
				p |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown permission %q", name)
		}
	}
	return p, nil
}

func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Names())
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParsePermission(names)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type ShareLink struct {
	ID    string `gorm:"primaryKey;size:36" json:"id"`
	Token string `gorm:"size:64;not null;uniqueIndex:idx_share_links_token" json:"-"`

	ResourceID string     `gorm:"size:64;not null;index" json:"resource_id"`
	OwnerID    string     `gorm:"size:64;not null;index" json:"owner_id"`
	Permission Permission `gorm:"not null" json:"permission"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	IsActive       bool  `gorm:"not null" json:"is_active"`
	AccessCount    int64 `gorm:"not null;default:0" json:"access_count"`
	MaxAccessCount int64 `gorm:"not null;default:0" json:"max_access_count"`

	// Nil means the link carries no password.
	PasswordHash *string `gorm:"size:255" json:"-"`

	Description    *string    `gorm:"size:1024" json:"description,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	AccessLog []AccessLogEntry `gorm:"foreignKey:ShareLinkID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l ShareLink) PasswordProtected() bool {
	return l.PasswordHash != nil
}

type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

type FailureReason string

const (
	ReasonExpired          FailureReason = "expired"
	ReasonRevoked          FailureReason = "revoked"
	ReasonLimitReached     FailureReason = "limit-reached"
	ReasonBadPassword      FailureReason = "bad-password"
	ReasonRateLimited      FailureReason = "rate-limited"
	ReasonPasswordRequired FailureReason = "password-required"

	// A download was requested through a link without AllowDownload.
	ReasonDownloadNotPermitted FailureReason = "download-not-permitted"
)

type AccessLogEntry struct {
	ID            string         `gorm:"primaryKey;size:26" json:"id"`
	ShareLinkID   string         `gorm:"size:36;not null;index" json:"share_link_id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	SourceAddress string         `gorm:"size:64" json:"source_address"`
	UserAgent     string         `gorm:"size:512" json:"user_agent"`
	Outcome       Outcome        `gorm:"size:16;not null" json:"outcome"`
	FailureReason *FailureReason `gorm:"size:32" json:"failure_reason,omitempty"`
	SessionID     *string        `gorm:"size:128" json:"session_id,omitempty"`
	Referrer      *string        `gorm:"size:1024" json:"referrer,omitempty"`
}

type Snippet struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID   string    `gorm:"size:64;not null;index" json:"owner_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Language  string    `gorm:"size:64" json:"language"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	History []SnippetRevision `gorm:"foreignKey:SnippetID;constraint:OnDelete:CASCADE" json:"history"`
}

type SnippetRevision struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	SnippetID string    `gorm:"size:36;not null;index" json:"snippet_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
