package inference_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"facequery-backend/internal/inference"
)

// These tests cover the artifact validation that happens before the runtime
// is touched, so they run without the ONNX shared library installed.

func TestNewClassifier_MissingLabels(t *testing.T) {
	_, err := inference.NewClassifier(inference.Config{
		ModelDir: t.TempDir(),
		Logger:   zap.NewNop().Sugar(),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load labels")
}

func TestNewClassifier_EmptyLabelsFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "labels.txt"), []byte("\n\n"), 0o644))

	_, err := inference.NewClassifier(inference.Config{
		ModelDir: dir,
		Logger:   zap.NewNop().Sugar(),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no labels")
}

func TestNewClassifier_MissingModel(t *testing.T) {
	dir := t.TempDir()
	labels := "angry\ndisgust\nfear\nhappy\nneutral\nsad\nsurprise\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "labels.txt"), []byte(labels), 0o644))

	_, err := inference.NewClassifier(inference.Config{
		ModelDir: dir,
		Logger:   zap.NewNop().Sugar(),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model artifact missing")
}
