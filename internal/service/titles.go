package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var titleRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(\d{2})-(\d{2})-#(\d+)$`)

// TitleGenerator 生成条目标题：YYYY-MM-DD-HH-MM-#N，
// N 来自 Sequencer，保证同一用户同一天内标题不重复
type TitleGenerator struct {
	seq *Sequencer
}

// NewTitleGenerator 创建标题生成器
func NewTitleGenerator(seq *Sequencer) *TitleGenerator {
	return &TitleGenerator{seq: seq}
}

// Generate 按给定时刻（UTC）生成标题
func (g *TitleGenerator) Generate(ctx context.Context, userID uint, at time.Time) (string, error) {
	at = at.UTC()
	dateYmd := at.Format("2006-01-02")
	counter, err := g.seq.Next(ctx, userID, dateYmd)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%02d-%02d-#%d", dateYmd, at.Hour(), at.Minute(), counter), nil
}

// ParsedTitle 解析结果
type ParsedTitle struct {
	Date    string
	Time    string
	Counter int64
}

// ParseTitle 解析标题，格式不符返回 nil
func ParseTitle(title string) *ParsedTitle {
	m := titleRe.FindStringSubmatch(title)
	if m == nil {
		return nil
	}
	counter, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return nil
	}
	return &ParsedTitle{Date: m[1], Time: m[2] + ":" + m[3], Counter: counter}
}
