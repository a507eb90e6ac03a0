package models

import "strings"

// Label 症状标签（封闭词表）
type Label string

const (
	LabelHeavyBleeding                   Label = "heavy_bleeding"
	LabelSevereAbdominalPain             Label = "severe_abdominal_pain"
	LabelSevereHeadacheWithVisionChanges Label = "severe_headache_with_vision_changes"
	LabelBlurredVision                   Label = "blurred_vision"
	LabelShortnessOfBreath               Label = "shortness_of_breath"
	LabelChestPain                       Label = "chest_pain"
	LabelReducedFetalMovement            Label = "reduced_fetal_movement"
	LabelFever                           Label = "fever"
	LabelMildBleeding                    Label = "mild_bleeding"
	LabelAbdominalPain                   Label = "abdominal_pain"
	LabelSwelling                        Label = "swelling"
	LabelDizziness                       Label = "dizziness"
	LabelVomiting                        Label = "vomiting"
	LabelHeadache                        Label = "headache"
	LabelDiarrhea                        Label = "diarrhea"
)

// vocabulary 词表顺序即对外展示顺序
var vocabulary = []Label{
	LabelHeavyBleeding,
	LabelSevereAbdominalPain,
	LabelSevereHeadacheWithVisionChanges,
	LabelBlurredVision,
	LabelShortnessOfBreath,
	LabelChestPain,
	LabelReducedFetalMovement,
	LabelFever,
	LabelMildBleeding,
	LabelAbdominalPain,
	LabelSwelling,
	LabelDizziness,
	LabelVomiting,
	LabelHeadache,
	LabelDiarrhea,
}

var vocabularySet = func() map[Label]struct{} {
	set := make(map[Label]struct{}, len(vocabulary))
	for _, l := range vocabulary {
		set[l] = struct{}{}
	}
	return set
}()

// AllLabels 返回完整词表（副本）
func AllLabels() []Label {
	out := make([]Label, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// ParseLabel 将字符串解析为词表内的标签
// 大小写、首尾空白、空格与连字符均被规整为下划线形式；不在词表内返回 false
func ParseLabel(s string) (Label, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	l := Label(norm)
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// Valid 是否为词表成员
func (l Label) Valid() bool {
	_, ok := vocabularySet[l]
	return ok
}

// Display 人类可读形式，如 "blurred vision"
func (l Label) Display() string {
	return strings.ReplaceAll(string(l), "_", " ")
}
