package detector

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// DNN input geometry for SSD-style detection networks.
const (
	dnnInputSize = 300
	dnnScale     = 1.0 / 127.5
	dnnMean      = 127.5
)

// DNNBoxer runs detection locally through an OpenCV DNN network. The
// network carries a fixed label vocabulary; requested class names are
// matched against it case-insensitively, so the open vocabulary is
// effectively clipped to what the network was trained on. Use
// ServiceBackend for true open-vocabulary detection.
type DNNBoxer struct {
	net    gocv.Net
	labels []string
	mu     sync.Mutex
}

// NewDNNBoxer loads a detection network and its label vocabulary. Model
// and label files are resolved against the candidate model directories.
// It fails when the files are missing or the network cannot be loaded.
func NewDNNBoxer(modelFile, configFile, labelFile string) (*DNNBoxer, error) {
	modelPath, err := findModelFile(modelFile)
	if err != nil {
		return nil, err
	}
	configPath, err := findModelFile(configFile)
	if err != nil {
		return nil, err
	}
	labelPath, err := findModelFile(labelFile)
	if err != nil {
		return nil, err
	}

	labels, err := readLabels(labelPath)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("load network %s: %w", modelFile, ErrModelNotFound)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set network target: %w", err)
	}

	return &DNNBoxer{net: net, labels: labels}, nil
}

// Boxes runs a forward pass and returns candidates for the requested
// classes. Network detections whose vocabulary label matches no requested
// class are discarded.
func (b *DNNBoxer) Boxes(frame *gocv.Mat, classes []string, threshold float64) ([]Candidate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.net.Empty() {
		return nil, fmt.Errorf("network is not loaded")
	}

	// Map vocabulary labels to their index in the requested class list.
	wanted := make(map[string]int, len(classes))
	for i, c := range classes {
		wanted[strings.ToLower(c)] = i
	}

	blob := gocv.BlobFromImage(*frame, dnnScale, image.Pt(dnnInputSize, dnnInputSize),
		gocv.NewScalar(dnnMean, dnnMean, dnnMean, 0), true, false)
	defer blob.Close()

	b.net.SetInput(blob, "")
	output := b.net.Forward("")
	defer output.Close()

	// SSD output rows: [batch, classID, confidence, x1, y1, x2, y2]
	// with normalized coordinates.
	rows := output.Total() / 7
	reshaped := output.Reshape(1, rows)
	defer reshaped.Close()

	w, h := float32(frame.Cols()), float32(frame.Rows())
	var candidates []Candidate
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := float64(reshaped.GetFloatAt(i, 2))
		if confidence < threshold {
			continue
		}

		classID := int(reshaped.GetFloatAt(i, 1))
		if classID < 0 || classID >= len(b.labels) {
			continue
		}
		classIdx, ok := wanted[strings.ToLower(b.labels[classID])]
		if !ok {
			continue
		}

		x1 := int(reshaped.GetFloatAt(i, 3) * w)
		y1 := int(reshaped.GetFloatAt(i, 4) * h)
		x2 := int(reshaped.GetFloatAt(i, 5) * w)
		y2 := int(reshaped.GetFloatAt(i, 6) * h)
		box := image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))

		candidates = append(candidates, Candidate{
			Class:      classIdx,
			Label:      classes[classIdx],
			Confidence: confidence,
			Box:        box,
		})
	}
	return candidates, nil
}

// Labels returns the network's label vocabulary.
func (b *DNNBoxer) Labels() []string {
	return b.labels
}

// Close releases the network.
func (b *DNNBoxer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.net.Close()
}

// readLabels reads a label vocabulary file, one label per line. Blank
// lines are skipped.
func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}
	return labels, nil
}
