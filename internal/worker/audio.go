package worker

import "context"

// AudioProcessor 音频后处理。实际的降噪/响度归一由外部引擎完成，
// 这里只定义契约与默认实现
type AudioProcessor interface {
	// Process 对音频字节应用 op（denoise/normalize/enhance），返回处理后的字节
	Process(ctx context.Context, op string, audio []byte) ([]byte, error)
}

// passthroughProcessor 占位实现：原样返回。
// TODO: 接入 ffmpeg sidecar 后替换，接口不变
type passthroughProcessor struct{}

// NewPassthroughProcessor 默认音频处理器
func NewPassthroughProcessor() AudioProcessor { return passthroughProcessor{} }

func (passthroughProcessor) Process(_ context.Context, _ string, audio []byte) ([]byte, error) {
	return audio, nil
}
