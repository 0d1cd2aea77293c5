package model

import (
	"slices"

	"gorm.io/datatypes"
)

// Challenge is loaded from the organizer repository. Enabled is tri-state:
// true/false is the organizer switch, nil marks a row not yet confirmed by the
// reconciliation pass in progress.
// swagger:model Challenge
type Challenge struct {
	ID          uint                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Slug        string                      `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Author      string                      `gorm:"size:255" json:"author"`
	Description string                      `gorm:"type:text" json:"description"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Flag        string                      `gorm:"size:255;not null" json:"-"`
	Enabled     *bool                       `gorm:"index" json:"enabled"`
	SolveCount  int                         `gorm:"not null;default:0" json:"solves"`
	Timestamps
}

func (Challenge) TableName() string {
	return "challenges"
}

// IsEnabled treats a pending row as disabled.
func (c *Challenge) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// SameContent compares the organizer-controlled fields.
func (c *Challenge) SameContent(other *Challenge) bool {
	return c.Title == other.Title &&
		c.Author == other.Author &&
		c.Description == other.Description &&
		c.Flag == other.Flag &&
		slices.Equal([]string(c.Tags), []string(other.Tags))
}

// ChallengeSequence holds the last challenge id handed out. Ids are never reused
// because they double as solve-set bit positions.
type ChallengeSequence struct {
	Name   string `gorm:"primaryKey;size:32"`
	LastID uint   `gorm:"not null"`
}

func (ChallengeSequence) TableName() string {
	return "challenge_sequences"
}
