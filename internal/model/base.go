package model

import (
	"time"

	"github.com/google/uuid"
)

// Timestamps 记录创建与更新时间，各模型嵌入使用
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GenerateToken 生成会话令牌
func GenerateToken() string {
	return uuid.New().String()
}
