package models

import (
	"time"

	"gorm.io/gorm"
)

// Summary 状态机：queued -> processing -> done | failed。
// 终态只能经显式 retry 回到 queued，其余跃迁一律拒绝
const (
	SummaryStatusQueued     = "queued"
	SummaryStatusProcessing = "processing"
	SummaryStatusDone       = "done"
	SummaryStatusFailed     = "failed"
)

type Summary struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PublicID     string    `json:"publicId" gorm:"size:64;uniqueIndex"`
	UserID       uint      `json:"userId" gorm:"index"`
	RangeStart   time.Time `json:"rangeStart"`
	RangeEnd     time.Time `json:"rangeEnd"`
	TemplateID   string    `json:"templateId" gorm:"size:64"`
	Status       string    `json:"status" gorm:"size:32;default:queued"`
	SummaryText  string    `json:"summaryText,omitempty" gorm:"type:text"`
	ErrorCode    string    `json:"errorCode,omitempty" gorm:"size:64"`
	ErrorMessage string    `json:"errorMessage,omitempty" gorm:"size:255"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetSummaryByPublicID 按 public_id 查摘要并校验归属
func GetSummaryByPublicID(db *gorm.DB, publicID string, userID uint) (*Summary, error) {
	var s Summary
	err := db.Where("public_id = ? AND user_id = ?", publicID, userID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSummaryByID worker 侧按内部 id 查摘要
func GetSummaryByID(db *gorm.DB, id uint) (*Summary, error) {
	var s Summary
	if err := db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSummariesByUser 按创建时间倒序列出，status 为空则不过滤
func ListSummariesByUser(db *gorm.DB, userID uint, status string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := db.Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var summaries []Summary
	err := q.Order("created_at DESC").Limit(limit).Find(&summaries).Error
	return summaries, err
}
