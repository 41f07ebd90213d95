package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"heartrisk/config"
	"heartrisk/ml"
	"heartrisk/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	envFile := flag.String("env", ".env", "path to .env file")
	maxDepth := flag.Int("max_depth", 6, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 42, "shuffle seed")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Data.Path == "" || cfg.ML.ModelPath == "" {
		log.Fatal("PATH_TO_DATASET and PATH_TO_MODEL are required")
	}
	version, err := ml.LookupVersion(cfg.ML.ModelVersion)
	if err != nil {
		log.Fatal(err)
	}

	samples, _, err := pipeline.LoadDataset(cfg.Data.Path)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	preprocessor := ml.NewPreprocessor()
	if err := preprocessor.Fit(samples); err != nil {
		log.Fatalf("failed to fit preprocessor: %v", err)
	}

	features, labels, err := buildTrainingData(preprocessor, samples)
	if err != nil {
		log.Fatalf("failed to build training data: %v", err)
	}
	trainX, trainY, testX, testY := splitDataset(features, labels, *testRatio, *seed)

	model := ml.NewDecisionTree(*maxDepth)
	model.Version = version.Version
	model.Features = preprocessor.Columns(true)
	if err := model.Train(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	accuracy, precision, recall := evaluateModel(model, testX, testY)
	log.Printf("accuracy=%.2f precision=%.2f recall=%.2f", accuracy, precision, recall)

	if err := os.MkdirAll(cfg.ML.ModelPath, 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	path := version.ArtifactPath(cfg.ML.ModelPath)
	if err := model.Save(path); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model saved to %s\n", path)
}

// buildTrainingData 返回与线上预测一致的缩放特征
func buildTrainingData(preprocessor *ml.Preprocessor, samples []ml.Sample) ([][]float64, []int, error) {
	frame, err := preprocessor.Transform(samples, ml.TransformOptions{DropTarget: true, Scale: true})
	if err != nil {
		return nil, nil, err
	}
	labels := make([]int, len(samples))
	for i, sample := range samples {
		if labels[i], err = ml.EncodeTarget(sample.Class); err != nil {
			return nil, nil, err
		}
	}
	return frame.Rows, labels, nil
}

func splitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	indices := rand.New(rand.NewSource(seed)).Perm(len(features))

	split := int(float64(len(features)) * (1 - testRatio))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func evaluateModel(model ml.Classifier, testX [][]float64, testY []int) (accuracy, precision, recall float64) {
	if len(testX) == 0 {
		return 0, 0, 0
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, feature := range testX {
		label, _, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	accuracy = float64(correct) / float64(len(testX))
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	return accuracy, precision, recall
}
