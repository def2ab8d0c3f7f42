package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Entry 状态。条目没有 queued 态，创建即 processing
const (
	EntryStatusProcessing = "processing"
	EntryStatusDone       = "done"
	EntryStatusFailed     = "failed"
)

// 状态变更信号，listeners 订阅后推给 websocket
const (
	SigEntryStatusChange   = "entry:status"
	SigSummaryStatusChange = "summary:status"
)

type Entry struct {
	ID                uint   `json:"id" gorm:"primaryKey"`
	PublicID          string `json:"publicId" gorm:"size:64;uniqueIndex"` // 对外暴露的不透明 id
	UserID            uint   `json:"userId" gorm:"index"`
	Title             string `json:"title" gorm:"size:64"` // YYYY-MM-DD-HH-MM-#N，同一用户内唯一
	AudioKey          string `json:"-" gorm:"size:1024"`   // 对象存储 key，不直接外露
	Status            string `json:"status" gorm:"size:32;default:processing"`
	TranscriptText    string `json:"transcriptText,omitempty" gorm:"type:text"`
	TranscriptVersion int    `json:"transcriptVersion"` // 手工修订转写时 +1
	SummaryText       string `json:"summaryText,omitempty" gorm:"type:text"`
	ErrorCode         string `json:"errorCode,omitempty" gorm:"size:64"`
	ErrorMessage      string `json:"errorMessage,omitempty" gorm:"size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// GetEntryByPublicID 按 public_id 查条目并校验归属。
// 非本人记录一律按不存在处理，不暴露他人数据的存在性
func GetEntryByPublicID(db *gorm.DB, publicID string, userID uint) (*Entry, error) {
	var e Entry
	err := db.Where("public_id = ? AND user_id = ?", publicID, userID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEntryByID worker 侧按内部 id 查条目
func GetEntryByID(db *gorm.DB, id uint) (*Entry, error) {
	var e Entry
	if err := db.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntriesByUser 按创建时间倒序列出用户条目
func ListEntriesByUser(db *gorm.DB, userID uint, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []Entry
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// ListTranscriptsInRange 取区间内已转写的文本，按时间正序
func ListTranscriptsInRange(db *gorm.DB, userID uint, start, end time.Time) ([]string, error) {
	var entries []Entry
	err := db.Select("transcript_text").
		Where("user_id = ? AND created_at >= ? AND created_at <= ? AND transcript_text <> ''", userID, start, end).
		Order("created_at ASC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.TranscriptText)
	}
	return texts, nil
}

// IsNotFound gorm 未命中
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
