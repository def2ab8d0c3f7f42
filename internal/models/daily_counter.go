package models

import "time"

// DailyCounter 每用户每天一行，counter 从 1 起。
// 只允许由 Sequencer 的原子自增语句修改，应用代码不得读改写
// 复合主键 (user_id, date_ymd)，不用自增 id，
// mysql 路径依赖 LAST_INSERT_ID(expr) 不被自增列干扰
type DailyCounter struct {
	UserID    uint   `json:"userId" gorm:"primaryKey;autoIncrement:false"`
	DateYmd   string `json:"dateYmd" gorm:"primaryKey;size:10"` // UTC 日期 YYYY-MM-DD
	Counter   int64  `json:"counter"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DailyCounter) TableName() string { return "daily_counters" }
