package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"safemama-triage/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTimeout 外部语言理解服务的默认超时
const DefaultTimeout = 8 * time.Second

// LLMOptions LLM 分类器配置
type LLMOptions struct {
	BaseURL      string        // 例如 https://api.openai.com/v1
	EndpointPath string        // 默认 /chat/completions
	Model        string        // 默认 gpt-4.1-mini
	APIKey       string        // 为空时不发送 Authorization
	Timeout      time.Duration // 单次调用上限
}

func (o *LLMOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.EndpointPath == "" {
		o.EndpointPath = "/chat/completions"
	}
	if o.Model == "" {
		o.Model = "gpt-4.1-mini"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
}

// LLMClassifier 通过 OpenAI 兼容的 chat-completions 接口分类
// 单次调用、不重试；超时或任何错误均返回空列表
type LLMClassifier struct {
	httpClient *resty.Client
	endpoint   string
	model      string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewLLMClassifier 创建 LLM 分类器
func NewLLMClassifier(opts LLMOptions, logger *zap.Logger) *LLMClassifier {
	opts.defaults()

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	return &LLMClassifier{
		httpClient: client,
		endpoint:   "/" + strings.TrimLeft(opts.EndpointPath, "/"),
		model:      opts.Model,
		timeout:    opts.Timeout,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// labelPayload 模型输出的 JSON 结构
type labelPayload struct {
	Labels []string `json:"labels"`
}

// systemPrompt 约束模型只输出词表内标签
func systemPrompt() string {
	names := make([]string, 0, len(models.AllLabels()))
	for _, l := range models.AllLabels() {
		names = append(names, string(l))
	}
	return "You extract pregnancy symptoms from a patient's message. " +
		"Answer with a JSON object {\"labels\": [...]} using only these labels: " +
		strings.Join(names, ", ") + ". " +
		"Return an empty list when no listed symptom is described."
}

// Classify 实现 Classifier
func (c *LLMClassifier) Classify(ctx context.Context, text string) []models.Label {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.Label{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	candidates, err := c.invoke(ctx, text)
	if err != nil {
		c.logger.Warn("Symptom classification failed, continuing without labels",
			zap.Error(err),
		)
		return []models.Label{}
	}

	labels := FilterVocabulary(candidates)
	if dropped := len(candidates) - len(labels); dropped > 0 {
		c.logger.Debug("Dropped labels outside vocabulary",
			zap.Int("dropped_count", dropped),
		)
	}
	return labels
}

func (c *LLMClassifier) invoke(ctx context.Context, text string) ([]string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: text},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode())
	}

	var chat chatResponse
	if err := json.Unmarshal(resp.Body(), &chat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classifier response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("classifier response has no choices")
	}

	var payload labelPayload
	content := stripCodeFence(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classifier labels: %w", err)
	}
	return payload.Labels, nil
}

// stripCodeFence 去掉模型偶尔附带的 ```json 代码块标记
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
