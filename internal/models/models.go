/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Station aggregates mounts and scheduling data for one linear channel.
type Station struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	Timezone  string `gorm:"type:varchar(64)"` // IANA zone name; local-time-of-day clock slots resolve against this
	Active    bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Mount describes an output destination a built plan is materialized for.
type Mount struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StationID string `gorm:"type:uuid;index"`
	Name      string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaItem is a playable asset together with its analysis metadata.
type MediaItem struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	StationID     string `gorm:"type:uuid;index"`
	Title         string `gorm:"index"`
	Artist        string `gorm:"index"`
	Album         string `gorm:"index"`
	Duration      time.Duration
	StorageKey    string
	Genre         string
	Mood          string
	Label         string
	Language      string
	Explicit      bool
	LoudnessLUFS  float64
	BPM           float64
	Tags          []MediaTagLink
	Chapters      []MediaChapter `gorm:"foreignKey:MediaItemID"`
	CuePoints     CuePointSet    `gorm:"type:jsonb"`
	AnalysisState AnalysisState  `gorm:"type:varchar(32)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MediaChapter marks a content segment boundary inside a MediaItem, used by
// the filler composer to frame mid-roll breaks at chapter boundaries rather
// than mid-sentence.
type MediaChapter struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	MediaItemID string `gorm:"type:uuid;index"`
	Position    int    `gorm:"index"`
	StartOffset time.Duration
	EndOffset   time.Duration
	IsBreak     bool // true if this chapter itself represents a scheduled break point
}

// CuePointSet captures intro/outro markers used when trimming filler picks.
type CuePointSet struct {
	IntroEnd float64 `json:"intro_end"`
	OutroIn  float64 `json:"outro_in"`
}

// Value implements driver.Valuer for database serialization.
func (c CuePointSet) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for database deserialization.
func (c *CuePointSet) Scan(value interface{}) error {
	if value == nil {
		*c = CuePointSet{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal CuePointSet: %v", value)
	}
	if len(bytes) == 0 {
		*c = CuePointSet{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// AnalysisState tracks analyzer progress for a MediaItem.
type AnalysisState string

const (
	AnalysisPending  AnalysisState = "pending"
	AnalysisRunning  AnalysisState = "running"
	AnalysisComplete AnalysisState = "complete"
	AnalysisFailed   AnalysisState = "failed"
)

// Tag defines a metadata label usable in collection filter rules.
type Tag struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaTagLink is the join table between media items and tags.
type MediaTagLink struct {
	MediaItemID string `gorm:"type:uuid;primaryKey"`
	TagID       string `gorm:"type:uuid;primaryKey"`
}

// SmartBlock encapsulates a rule-driven collection definition. Its rule
// evaluation is an enumerator internal and stays out of the schedule
// builder's scope; the builder only ever sees the CollectionEnumerator
// interface.
type SmartBlock struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	StationID   string         `gorm:"type:uuid;index"`
	Name        string         `gorm:"index"`
	Description string         `gorm:"type:text"`
	Rules       map[string]any `gorm:"type:jsonb"`
	Sequence    map[string]any `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClockSlotType enumerates the kinds of content a clock slot may resolve to.
type ClockSlotType string

const (
	SlotTypeSmartBlock ClockSlotType = "smart_block"
	SlotTypeHardItem   ClockSlotType = "hard_item"
	SlotTypeStopset    ClockSlotType = "stopset"
)

// ClockHour describes a one-hour programming template.
type ClockHour struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StationID string `gorm:"type:uuid;index"`
	Name      string
	// StartHour and EndHour bound the local hours [StartHour, EndHour) the
	// template covers; equal values cover the whole day and a start after
	// the end wraps past midnight.
	StartHour int
	EndHour   int
	Slots     []ClockSlot `gorm:"foreignKey:ClockHourID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClockSlot is a single element within an hour template. Offset is the
// local-time-of-day offset from the top of the hour.
type ClockSlot struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	ClockHourID string `gorm:"type:uuid;index"`
	Position    int
	Offset      time.Duration
	Type        ClockSlotType  `gorm:"type:varchar(32)"`
	Payload     map[string]any `gorm:"type:jsonb"`
}

// ScheduleEntry is a materialized PlayoutItem persisted for a station/mount.
type ScheduleEntry struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	StationID  string `gorm:"type:uuid;index"`
	MountID    string `gorm:"type:uuid;index"`
	StartsAt   time.Time
	EndsAt     time.Time
	SourceType string         `gorm:"type:varchar(32)"` // "media", "filler", "guide_group_marker"
	SourceID   string         `gorm:"type:uuid"`
	IsFiller   bool
	GuideGroup int64          `gorm:"index"` // shared across items presented as a single guide entry
	Metadata   map[string]any `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PlayHistory stores executed playout events, used by collection enumerators
// to enforce separation windows and by smart-block quota evaluation.
type PlayHistory struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StationID string `gorm:"type:uuid;index"`
	MountID   string `gorm:"type:uuid;index"`
	MediaID   string `gorm:"type:uuid"`
	Artist    string `gorm:"index"`
	Title     string `gorm:"index"`
	Album     string `gorm:"index"`
	Label     string
	StartedAt time.Time
	EndedAt   time.Time
	Metadata  map[string]any `gorm:"type:jsonb"`
}

// MetadataString retrieves string metadata with fallback to struct fields.
func (p PlayHistory) MetadataString(key string) string {
	if p.Metadata != nil {
		if val, ok := p.Metadata[key]; ok {
			if str, ok := val.(string); ok {
				return str
			}
		}
	}
	switch strings.ToLower(key) {
	case "artist":
		return p.Artist
	case "title":
		return p.Title
	case "album":
		return p.Album
	case "label":
		return p.Label
	default:
		return ""
	}
}

// AnalysisJob records the analyzer work queue that keeps MediaItem metadata
// current. The scheduler never runs analysis itself; smart-block selection
// and its random fallback only draw items whose AnalysisState is
// AnalysisComplete, while hard-item and playlist slots do not check it.
type AnalysisJob struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	MediaID   string `gorm:"type:uuid;index"`
	Status    string `gorm:"type:varchar(32)"`
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Playlist represents a fixed, ordered collection of media items (the
// simplest CollectionEnumerator backing store: no rule evaluation, just a
// stored sequence).
type Playlist struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	StationID   string         `gorm:"type:uuid;index"`
	Name        string         `gorm:"index"`
	Description string         `gorm:"type:text"`
	Items       []PlaylistItem `gorm:"foreignKey:PlaylistID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlaylistItem is a single ordered element of a Playlist.
type PlaylistItem struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	PlaylistID string `gorm:"type:uuid;index"`
	MediaID    string `gorm:"type:uuid;index"`
	Position   int    `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clock represents a reusable show template keyed by duration rather than
// by an hourly grid (backs Duration-tagged schedule items).
type Clock struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	StationID   string `gorm:"type:uuid;index"`
	Name        string `gorm:"index"`
	Description string `gorm:"type:text"`
	Duration    time.Duration
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
