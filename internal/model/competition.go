package model

import "time"

// CompetitionID is the primary key of the singleton competition row.
const CompetitionID uint = 1

// swagger:model Competition
type Competition struct {
	ID        uint       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Home      string     `gorm:"type:text;not null" json:"home"`
	Start     *time.Time `json:"start,omitempty"`
	Stop      *time.Time `json:"stop,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Competition) TableName() string {
	return "competitions"
}

// Started reports whether now is at or after the start bound. A missing bound is open.
func (c *Competition) Started(now time.Time) bool {
	return c.Start == nil || !now.Before(*c.Start)
}

// Stopped reports whether now is after the stop bound.
func (c *Competition) Stopped(now time.Time) bool {
	return c.Stop != nil && now.After(*c.Stop)
}

// Running 比赛是否处于可提交状态
func (c *Competition) Running(now time.Time) bool {
	return c.Started(now) && !c.Stopped(now)
}
