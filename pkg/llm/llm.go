package llm

import (
	"context"
	"strings"
)

// Transcriber 语音转写
type Transcriber interface {
	// Transcribe 把音频字节转成文本，filename 用于让后端识别格式
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Summarizer 文本摘要
type Summarizer interface {
	// Summarize 对单篇转写生成摘要
	Summarize(ctx context.Context, text string) (string, error)

	// SummarizeRange 对一段时间内的多篇转写生成合并摘要
	SummarizeRange(ctx context.Context, texts []string, templateID string) (string, error)

	// SummarizeCustom 按自定义参数生成摘要
	SummarizeCustom(ctx context.Context, text string, style, length, focus, customPrompt string) (string, error)
}

// CleanTranscript 去掉口头语与多余空白
func CleanTranscript(text string) string {
	fillers := []string{"um", "uh", "er", "ah", "like,", "you know,"}
	t := text
	for _, f := range fillers {
		t = strings.ReplaceAll(t, " "+f+" ", " ")
	}
	return strings.Join(strings.Fields(t), " ")
}
