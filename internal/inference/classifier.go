package inference

import (
	"bufio"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	inputSize = 224
	modelFile = "model.onnx"
	labelFile = "labels.txt"
)

// ImageNet normalization, matching the preprocessing the model was
// exported with.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// Result is a successful classification: the top-ranked label and its
// probability after softmax.
type Result struct {
	Label      string
	Confidence float64
}

type Config struct {
	// ModelDir holds model.onnx and labels.txt.
	ModelDir string
	// RuntimeLib is the path to the ONNX Runtime shared library. Empty
	// means the platform default search path.
	RuntimeLib string
	Logger     *zap.SugaredLogger
}

// Classifier wraps the pretrained expression-classification pipeline. It is
// constructed once at startup and shared read-only for the process lifetime;
// session runs are reentrant, so no locking is added around Analyze.
type Classifier struct {
	session    *ort.DynamicAdvancedSession
	labels     []string
	inputName  string
	outputName string
	log        *zap.SugaredLogger
}

func NewClassifier(cfg Config) (*Classifier, error) {
	labels, err := loadLabels(filepath.Join(cfg.ModelDir, labelFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	modelPath := filepath.Join(cfg.ModelDir, modelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model artifact missing: %w", err)
	}

	if cfg.RuntimeLib != "" {
		ort.SetSharedLibraryPath(cfg.RuntimeLib)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize onnx runtime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected single-input single-output model, got %d/%d", len(inputs), len(outputs))
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	return &Classifier{
		session:    session,
		labels:     labels,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		log:        cfg.Logger,
	}, nil
}

// Analyze classifies the facial expression in the image at imagePath and
// returns the top label with its confidence. Every failure (missing or
// unreadable file, undecodable image, runtime error) is logged and reported
// as nil; no error escapes to callers.
func (c *Classifier) Analyze(imagePath string) *Result {
	if _, err := os.Stat(imagePath); err != nil {
		c.log.Errorw("image file not found", "path", imagePath, "error", err)
		return nil
	}

	img, err := decodeImage(imagePath)
	if err != nil {
		c.log.Errorw("failed to decode image", "path", imagePath, "error", err)
		return nil
	}

	input, err := ort.NewTensor(ort.NewShape(1, 3, inputSize, inputSize), preprocess(img))
	if err != nil {
		c.log.Errorw("failed to build input tensor", "path", imagePath, "error", err)
		return nil
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := c.session.Run([]ort.Value{input}, outputs); err != nil {
		c.log.Errorw("inference failed", "path", imagePath, "error", err)
		return nil
	}
	defer outputs[0].Destroy()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		c.log.Errorw("unexpected model output type", "path", imagePath)
		return nil
	}

	scores := softmax(logits.GetData())
	if len(scores) != len(c.labels) {
		c.log.Errorw("model output size does not match labels",
			"outputs", len(scores), "labels", len(c.labels))
		return nil
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	result := &Result{Label: c.labels[best], Confidence: float64(scores[best])}
	c.log.Infow("analysis result",
		"file", filepath.Base(imagePath), "label", result.Label, "confidence", result.Confidence)
	return result
}

func (c *Classifier) Close() {
	c.session.Destroy()
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels in %s", path)
	}
	return labels, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// preprocess converts an image to the model's input layout: RGB, scaled to
// 224x224, ImageNet-normalized, NCHW float32.
func preprocess(img image.Image) []float32 {
	scaled := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	data := make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := scaled.At(x, y).RGBA()
			idx := y*inputSize + x
			data[idx] = (float32(r>>8)/255.0 - channelMean[0]) / channelStd[0]
			data[plane+idx] = (float32(g>>8)/255.0 - channelMean[1]) / channelStd[1]
			data[2*plane+idx] = (float32(b>>8)/255.0 - channelMean[2]) / channelStd[2]
		}
	}
	return data
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	out := make([]float32, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
