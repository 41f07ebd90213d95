package pipeline

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"heartrisk/ml"
)

// CleaningRule 清洗规则，返回错误表示该行应被丢弃
type CleaningRule interface {
	Apply(*ml.Sample) error
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Rule    string `json:"rule"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// DataCleaner 数据清洗器
type DataCleaner struct {
	rules []CleaningRule

	stats     CleaningStats
	statsLock sync.RWMutex
}

// NewDataCleaner 创建带默认规则的清洗器
func NewDataCleaner() *DataCleaner {
	return NewDataCleanerWithRules(
		NewImplausiblePulseRule(),
		NewLabelRule(),
	)
}

// NewDataCleanerWithRules 使用指定规则创建清洗器
func NewDataCleanerWithRules(rules ...CleaningRule) *DataCleaner {
	cleaner := &DataCleaner{
		stats: CleaningStats{Issues: make(map[string]int64)},
	}
	for _, rule := range rules {
		cleaner.AddRule(rule)
	}
	return cleaner
}

// AddRule 添加清洗规则
func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
	zap.L().Debug("Added cleaning rule", zap.String("rule", rule.Name()))
}

// Clean 清洗数据，返回保留的行和被丢弃行的问题列表
func (dc *DataCleaner) Clean(samples []ml.Sample) ([]ml.Sample, []QualityIssue) {
	cleaned := make([]ml.Sample, 0, len(samples))
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for i := range samples {
		dc.stats.TotalProcessed++
		sample := samples[i]

		var rowIssues []QualityIssue
		for _, rule := range dc.rules {
			if err := rule.Apply(&sample); err != nil {
				rowIssues = append(rowIssues, QualityIssue{
					Rule:    rule.Name(),
					Row:     i,
					Message: err.Error(),
				})
				dc.stats.Issues[rule.Name()]++
			}
		}

		if len(rowIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, rowIssues...)
			continue
		}
		dc.stats.Passed++
		cleaned = append(cleaned, sample)
	}

	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

// GetStats 获取统计信息
func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for name, count := range dc.stats.Issues {
		stats.Issues[name] = count
	}
	return stats
}

// ============ 清洗规则实现 ============

// ImplausiblePulseRule 丢弃脉搏读数明显错误的行
type ImplausiblePulseRule struct {
	MaxPulse float64
}

func NewImplausiblePulseRule() *ImplausiblePulseRule {
	return &ImplausiblePulseRule{MaxPulse: 500}
}

func (r *ImplausiblePulseRule) Name() string {
	return "implausible_pulse"
}

func (r *ImplausiblePulseRule) Apply(sample *ml.Sample) error {
	if sample.Impulse > r.MaxPulse {
		return fmt.Errorf("pulse %.0f above %.0f", sample.Impulse, r.MaxPulse)
	}
	return nil
}

// LabelRule 丢弃无法编码的标签
type LabelRule struct{}

func NewLabelRule() *LabelRule {
	return &LabelRule{}
}

func (r *LabelRule) Name() string {
	return "label"
}

func (r *LabelRule) Apply(sample *ml.Sample) error {
	if !ml.IsKnownLabel(sample.Class) {
		return fmt.Errorf("unknown class %q", sample.Class)
	}
	return nil
}
