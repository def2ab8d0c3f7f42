package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig 模型服务配置
type OpenAIConfig struct {
	APIKey    string `env:"LLM_API_KEY"`
	BaseURL   string `env:"LLM_BASE_URL"`
	ChatModel string `env:"LLM_MODEL"`
	STTModel  string `env:"STT_MODEL"`
}

// OpenAIProvider 基于 OpenAI 兼容接口的转写 + 摘要实现
type OpenAIProvider struct {
	client    *openai.Client
	chatModel string
	sttModel  string
}

// NewOpenAIProvider 创建 provider，BaseURL 可指向任意兼容网关
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	sttModel := cfg.STTModel
	if sttModel == "" {
		sttModel = "whisper-1"
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		chatModel: chatModel,
		sttModel:  sttModel,
	}
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.sttModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

func (p *OpenAIProvider) Summarize(ctx context.Context, text string) (string, error) {
	return p.chat(ctx,
		"Summarize the journal entry concisely. Do not elaborate on personal details.",
		"Summarize the following in 3-5 lines:\n\n"+text)
}

func (p *OpenAIProvider) SummarizeRange(ctx context.Context, texts []string, templateID string) (string, error) {
	combined := strings.Join(texts, "\n\n")
	// 防止超长输入打爆上下文
	if len(combined) > 20000 {
		combined = combined[:20000]
	}
	sys := "Summarize a period of journal entries into a cohesive overview."
	if templateID != "" && templateID != "default" {
		sys += " Use the " + templateID + " template."
	}
	return p.chat(ctx, sys, combined)
}

func (p *OpenAIProvider) SummarizeCustom(ctx context.Context, text, style, length, focus, customPrompt string) (string, error) {
	sys := fmt.Sprintf("Summarize the journal entry. Style: %s. Length: %s. Focus on: %s.", style, length, focus)
	if customPrompt != "" {
		sys += " Additional instructions: " + customPrompt
	}
	return p.chat(ctx, sys, text)
}

func (p *OpenAIProvider) chat(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
