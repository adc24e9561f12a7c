package data

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Page types.
const (
	PageTypeMarketing = "marketing"
	PageTypeBlog      = "blog"
	PageTypeJob       = "job"
)

// ChangeType classifies why a page version was written.
type ChangeType string

const (
	ChangeCreate    ChangeType = "create"
	ChangeUpdate    ChangeType = "update"
	ChangePublish   ChangeType = "publish"
	ChangeUnpublish ChangeType = "unpublish"
)

// Metadata is an open key-value bag stored as a JSON document.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}
	*m = decoded
	return nil
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		out := make(Metadata, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	var out Metadata
	_ = json.Unmarshal(b, &out)
	return out
}

// Page is a content document addressed by its slug.
type Page struct {
	ID              string     `db:"id" json:"id"`
	Slug            string     `db:"slug" json:"slug"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	PageType        string     `db:"page_type" json:"pageType"`
	Category        string     `db:"category" json:"category"`
	MetaTitle       string     `db:"meta_title" json:"metaTitle"`
	MetaDescription string     `db:"meta_description" json:"metaDescription"`
	FeaturedImage   string     `db:"featured_image" json:"featuredImage"`
	Metadata        Metadata   `db:"metadata" json:"metadata"`
	IsPublished     bool       `db:"is_published" json:"isPublished"`
	PublishedAt     *time.Time `db:"published_at" json:"publishedAt"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
	CreatedBy       string     `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy       string     `db:"updated_by" json:"updatedBy,omitempty"`
}

// Clone returns a copy that shares no mutable state with p.
func (p *Page) Clone() *Page {
	c := *p
	c.Metadata = p.Metadata.Clone()
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// PageVersion is an immutable snapshot of a page's content fields.
type PageVersion struct {
	ID              string     `db:"id" json:"id"`
	PageID          string     `db:"page_id" json:"pageId"`
	VersionNumber   int        `db:"version_number" json:"versionNumber"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	PageType        string     `db:"page_type" json:"pageType"`
	Category        string     `db:"category" json:"category"`
	MetaTitle       string     `db:"meta_title" json:"metaTitle"`
	MetaDescription string     `db:"meta_description" json:"metaDescription"`
	FeaturedImage   string     `db:"featured_image" json:"featuredImage"`
	Metadata        Metadata   `db:"metadata" json:"metadata"`
	IsPublished     bool       `db:"is_published" json:"isPublished"`
	ChangeType      ChangeType `db:"change_type" json:"changeType"`
	ChangeSummary   string     `db:"change_summary" json:"changeSummary,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	CreatedBy       string     `db:"created_by" json:"createdBy,omitempty"`
}

// Clone returns a copy that shares no mutable state with v.
func (v *PageVersion) Clone() *PageVersion {
	c := *v
	c.Metadata = v.Metadata.Clone()
	return &c
}

// AuditLog is one entry of the append-only action log.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userId"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID string    `db:"resource_id" json:"resourceId"`
	Details    Metadata  `db:"details" json:"details"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// PageFilter narrows page listings.
type PageFilter struct {
	PageType      string
	PublishedOnly bool
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	UserID   string
	Action   string
	Resource string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}
