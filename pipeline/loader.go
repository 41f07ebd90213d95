// Package pipeline 负责读取并清洗训练数据集
package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"heartrisk/ml"
)

// LoadDataset 读取 CSV 数据集并应用默认清洗规则
func LoadDataset(path string) ([]ml.Sample, CleaningStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, CleaningStats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	samples, err := ReadSamples(file)
	if err != nil {
		return nil, CleaningStats{}, fmt.Errorf("read dataset %s: %w", path, err)
	}

	cleaner := NewDataCleaner()
	cleaned, _ := cleaner.Clean(samples)
	stats := cleaner.GetStats()
	if len(cleaned) == 0 {
		return nil, stats, fmt.Errorf("dataset %s: %w", path, ml.ErrEmptyDataset)
	}

	zap.L().Info("Dataset loaded",
		zap.String("path", path),
		zap.Int64("rows", stats.TotalProcessed),
		zap.Int64("rejected", stats.Rejected),
		zap.Any("issues", stats.Issues))
	return cleaned, stats, nil
}

// ReadSamples 解析带表头的 CSV，列按名称匹配（忽略大小写），可带 UTF-8 BOM
func ReadSamples(r io.Reader) ([]ml.Sample, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ml.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	columns := ml.InputColumns()
	for _, name := range append(columns, ml.TargetColumn) {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var samples []ml.Sample
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		sample := ml.Sample{Class: strings.TrimSpace(record[index[ml.TargetColumn]])}
		for _, name := range columns {
			idx := index[name]
			value, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				line, col := reader.FieldPos(idx)
				return nil, fmt.Errorf("line %d column %d (%s): %w", line, col, name, err)
			}
			if err := sample.Set(name, value); err != nil {
				return nil, err
			}
		}
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return nil, ml.ErrEmptyDataset
	}
	return samples, nil
}
