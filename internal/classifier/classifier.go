// Package classifier 将自由文本症状描述映射为封闭词表内的标签
//
// 分类只是辅助证据：任何失败都降级为空标签列表，不会向调用方返回错误
package classifier

import (
	"context"

	"safemama-triage/internal/models"
)

// Classifier 症状分类器
type Classifier interface {
	Classify(ctx context.Context, text string) []models.Label
}

// FilterVocabulary 过滤候选标签：丢弃词表外与重复项，保持原有顺序
func FilterVocabulary(candidates []string) []models.Label {
	out := make([]models.Label, 0, len(candidates))
	seen := make(map[models.Label]struct{}, len(candidates))
	for _, c := range candidates {
		l, ok := models.ParseLabel(c)
		if !ok {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Noop 不做任何分类
type Noop struct{}

// Classify 实现 Classifier
func (Noop) Classify(context.Context, string) []models.Label { return []models.Label{} }
