package detector

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// serviceIdleTimeout is how long the sidecar may sit unused before it is
// shut down. It restarts lazily on the next request.
const serviceIdleTimeout = 60 * time.Second

// ServiceBackend runs open-vocabulary detection and promptable
// segmentation through a Python inference sidecar. The sidecar hosts the
// pretrained models and speaks a simple framed protocol on stdin/stdout:
// a JSON request line, a length-prefixed JPEG frame, then a JSON response
// line. The process is started lazily on first use.
//
// ServiceBackend implements both Boxer and Segmenter.
type ServiceBackend struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewServiceBackend creates a sidecar-based backend. It fails when the
// inference service script cannot be located; the model weights
// themselves are loaded by the sidecar on startup.
func NewServiceBackend() (*ServiceBackend, error) {
	if findServiceScript() == "" {
		return nil, fmt.Errorf("vision_service.py not found: %w", ErrModelNotFound)
	}
	return &ServiceBackend{}, nil
}

type serviceRequest struct {
	Op        string   `json:"op"`
	Classes   []string `json:"classes,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Box       [4]int   `json:"box,omitempty"`
}

type serviceObject struct {
	Class      string  `json:"class"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

type serviceResponse struct {
	Objects []serviceObject `json:"objects,omitempty"`
	Mask    string          `json:"mask,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Boxes sends a detect request to the sidecar and converts the returned
// objects into candidates.
func (b *ServiceBackend) Boxes(frame *gocv.Mat, classes []string, threshold float64) ([]Candidate, error) {
	resp, err := b.roundTrip(frame, serviceRequest{
		Op:        "detect",
		Classes:   classes,
		Threshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(resp.Objects))
	for _, o := range resp.Objects {
		candidates = append(candidates, Candidate{
			Class:      o.ClassID,
			Label:      o.Class,
			Confidence: o.Confidence,
			Box:        image.Rect(o.Box[0], o.Box[1], o.Box[2], o.Box[3]),
		})
	}
	return candidates, nil
}

// Segment sends a segment request prompted with the given box and decodes
// the returned mask. The sidecar returns its mask as a base64 PNG at
// model resolution; it is upsampled to the frame dimensions here.
func (b *ServiceBackend) Segment(frame *gocv.Mat, box image.Rectangle) (*Mask, error) {
	resp, err := b.roundTrip(frame, serviceRequest{
		Op:  "segment",
		Box: [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
	})
	if err != nil {
		return nil, err
	}
	if resp.Mask == "" {
		return nil, fmt.Errorf("segment response contains no mask")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Mask)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode mask png: %w", err)
	}
	return MaskFromGray(img, frame.Cols(), frame.Rows()), nil
}

// Close shuts down the sidecar process.
func (b *ServiceBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdown()
}

// roundTrip performs one framed request/response exchange with the
// sidecar.
func (b *ServiceBackend) roundTrip(frame *gocv.Mat, req serviceRequest) (*serviceResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	reqJSON = append(reqJSON, '\n')

	if _, err := b.stdin.Write(reqJSON); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	if _, err := b.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write frame length: %w", err)
	}
	if _, err := b.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := b.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp serviceResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("inference service: %s", resp.Error)
	}

	b.resetIdleTimer()
	return &resp, nil
}

func (b *ServiceBackend) ensureStarted() error {
	if b.started {
		return nil
	}

	scriptPath := findServiceScript()
	if scriptPath == "" {
		return fmt.Errorf("vision_service.py not found: %w", ErrModelNotFound)
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	b.cmd = exec.Command(pythonPath, scriptPath)

	stdin, err := b.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := b.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	b.cmd.Stderr = os.Stderr

	if err := b.cmd.Start(); err != nil {
		return fmt.Errorf("start inference service: %w", err)
	}

	b.stdin = stdin
	b.stdout = bufio.NewReader(stdout)
	b.started = true
	return nil
}

func (b *ServiceBackend) shutdown() error {
	if !b.started {
		return nil
	}

	if b.idleTimer != nil {
		b.idleTimer.Stop()
		b.idleTimer = nil
	}
	if b.stdin != nil {
		b.stdin.Close()
	}

	err := b.cmd.Wait()
	b.started = false
	b.cmd = nil
	b.stdin = nil
	b.stdout = nil
	return err
}

func (b *ServiceBackend) resetIdleTimer() {
	if b.idleTimer != nil {
		b.idleTimer.Stop()
	}
	b.idleTimer = time.AfterFunc(serviceIdleTimeout, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.shutdown()
	})
}
