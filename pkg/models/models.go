package models

import (
	"encoding/json"
	"time"
)

// Comment processing statuses. The store enforces the same set via a CHECK
// constraint; callers must only ever write these values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Story is a top-level Hacker News post, here a monthly "Who is hiring" thread.
type Story struct {
	ID               int64   `json:"id" db:"id"`
	HNID             int64   `json:"hn_id" db:"hn_id"`
	Title            *string `json:"title,omitempty" db:"title"`
	Month            string  `json:"month" db:"month"`
	KidsCount        int64   `json:"kids_count" db:"kids_count"`
	DescendantsCount int64   `json:"descendants_count" db:"descendants_count"`
	Score            int64   `json:"score" db:"score"`
	CreatedTime      *int64  `json:"created_time,omitempty" db:"created_time"`
	FetchedTime      int64   `json:"fetched_time" db:"fetched_time"`
}

// Comment is a reply to a hiring thread, i.e. an individual job posting.
type Comment struct {
	ID              int64           `json:"id" db:"id"`
	HNID            int64           `json:"hn_id" db:"hn_id"`
	StoryID         int64           `json:"story_id" db:"story_id"`
	StoryText       *string         `json:"story_text,omitempty" db:"story_text"`
	StructuredData  json.RawMessage `json:"structured_data,omitempty" db:"structured_data"`
	ProcessedStatus string          `json:"processed_status" db:"processed_status"`
	CreatedTime     *int64          `json:"created_time,omitempty" db:"created_time"`
	FetchedTime     int64           `json:"fetched_time" db:"fetched_time"`
}

type Admin struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email" validate:"required,email"`
	Updated      int64  `json:"updated" db:"updated"`
	PasswordHash string `json:"password_hash,omitempty" db:"password_hash"`
}

type Schema struct {
	ID          int64  `json:"id" db:"id"`
	Version     string `json:"version" db:"version"`
	Description string `json:"description,omitempty" db:"description"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

type Template struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Version     string  `json:"version" db:"version"`
	TemplateTxt string  `json:"template_text" db:"template_text"`
	SchemaVer   *string `json:"schema_version,omitempty" db:"schema_version"`
	Metadata    *string `json:"metadata,omitempty" db:"metadata"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
