package classifier

import (
	"context"
	"regexp"
	"strings"

	"safemama-triage/internal/models"
)

// keywordPatterns 关键词规则（仅做文本到标签的映射，不含任何分级阈值）
var keywordPatterns = []struct {
	label   models.Label
	pattern *regexp.Regexp
}{
	{models.LabelHeavyBleeding, regexp.MustCompile(`\b(heavy|a lot of|lots of|soaking|gushing)\b.{0,20}\b(bleed\w*|blood)\b|\bhaemorrhag\w*|\bhemorrhag\w*`)},
	{models.LabelSevereAbdominalPain, regexp.MustCompile(`\b(severe|intense|unbearable|sharp|extreme)\b.{0,20}\b(abdominal|stomach|belly|tummy)\b\s*(pain|cramp\w*)`)},
	{models.LabelSevereHeadacheWithVisionChanges, regexp.MustCompile(`\bsevere\s+headache\b.{0,40}\b(vision|seeing|sight|eyes?)\b`)},
	{models.LabelBlurredVision, regexp.MustCompile(`\bblurr?(ed|y)\b|\bseeing (spots|stars)\b|\bflashing lights\b|\bdouble vision\b`)},
	{models.LabelShortnessOfBreath, regexp.MustCompile(`\bshort(ness)? of breath\b|\bcan'?t breathe\b|\b(difficulty|trouble) breathing\b|\bbreathless\w*`)},
	{models.LabelChestPain, regexp.MustCompile(`\bchest\s+(pain|tight\w*|pressure)\b`)},
	{models.LabelReducedFetalMovement, regexp.MustCompile(`\b(baby|fetus|foetus)\b.{0,30}\b(not moving|moving less|less movement|stopped moving|isn'?t moving)\b|\breduced (fetal|foetal) movements?\b`)},
	{models.LabelFever, regexp.MustCompile(`\b(fever\w*|high temperature|chills)\b`)},
	{models.LabelMildBleeding, regexp.MustCompile(`\bspotting\b|\b(light|mild|little|some)\s+(bleeding|blood)\b`)},
	{models.LabelAbdominalPain, regexp.MustCompile(`\b(abdominal|stomach|belly|tummy)\s+(pain|ache|cramp\w*)|\bcramp(s|ing)\b`)},
	{models.LabelSwelling, regexp.MustCompile(`\b(swelling|swollen|puffy)\b`)},
	{models.LabelDizziness, regexp.MustCompile(`\bdizz\w*|\bfaint\w*|\blight-?headed\b`)},
	{models.LabelVomiting, regexp.MustCompile(`\bvomit\w*|\bthrowing up\b|\bthrew up\b`)},
	{models.LabelHeadache, regexp.MustCompile(`\bheadaches?\b`)},
	{models.LabelDiarrhea, regexp.MustCompile(`\bdiarrh?o?ea\b|\bloose stools?\b`)},
}

// KeywordClassifier 基于正则的本地分类器，不依赖外部服务
type KeywordClassifier struct{}

// NewKeywordClassifier 创建关键词分类器
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify 实现 Classifier
func (k *KeywordClassifier) Classify(_ context.Context, text string) []models.Label {
	lower := strings.ToLower(text)
	out := []models.Label{}
	if strings.TrimSpace(lower) == "" {
		return out
	}
	for _, kp := range keywordPatterns {
		if kp.pattern.MatchString(lower) {
			out = append(out, kp.label)
		}
	}
	return out
}
