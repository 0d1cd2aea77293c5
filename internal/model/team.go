package model

import "time"

// swagger:model Team
type Team struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Email       string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"size:100;not null" json:"-"`
	Solves      SolveSet   `gorm:"not null;default:0" json:"-"`
	Score       int        `gorm:"not null;default:0;index" json:"score"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	Timestamps
}

func (Team) TableName() string {
	return "teams"
}

// Session 登录会话，令牌即凭证
type Session struct {
	Token     string `gorm:"primaryKey;size:36"`
	TeamID    uint   `gorm:"index;not null"`
	CreatedAt time.Time
}

func (Session) TableName() string {
	return "sessions"
}

// Solve records a credited submission.
type Solve struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID      uint      `gorm:"uniqueIndex:idx_solve_team_challenge;not null" json:"teamId"`
	ChallengeID uint      `gorm:"uniqueIndex:idx_solve_team_challenge;not null" json:"challengeId"`
	Value       int       `gorm:"not null" json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Solve) TableName() string {
	return "solves"
}
