package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Subprocess oracle wire protocol: newline-delimited JSON messages over
// the child's stdin/stdout. The child announces itself with a READY
// message, then answers each SCORE request with a RESULT or ERROR
// message carrying the request id.

// messageType identifies a subprocess protocol message.
type messageType string

const (
	messageTypeReady  messageType = "READY"
	messageTypeScore  messageType = "SCORE"
	messageTypeResult messageType = "RESULT"
	messageTypeError  messageType = "ERROR"
)

// message is the envelope for all subprocess protocol messages.
type message struct {
	Type messageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// readyMessage is sent by the child once it is able to score snapshots.
type readyMessage struct {
	Version string `json:"version,omitempty"`
}

// scoreRequest asks the child to score one snapshot.
type scoreRequest struct {
	ID       uint64   `json:"id"`
	Snapshot Snapshot `json:"snapshot"`
}

// scoreResult carries the child's answer for a request.
type scoreResult struct {
	ID    uint64  `json:"id"`
	Value float64 `json:"value"`
}

// errorMessage reports a child-side scoring failure.
type errorMessage struct {
	ID      uint64 `json:"id,omitempty"`
	Message string `json:"message"`
}

// wireEncoder writes protocol messages to the child's stdin.
type wireEncoder struct {
	w *bufio.Writer
}

func newWireEncoder(w io.Writer) *wireEncoder {
	return &wireEncoder{w: bufio.NewWriter(w)}
}

func (e *wireEncoder) encode(msgType messageType, data interface{}) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	msgBytes, err := json.Marshal(message{Type: msgType, Data: dataBytes})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := e.w.Write(msgBytes); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return e.w.Flush()
}

// wireDecoder reads protocol messages from the child's stdout.
type wireDecoder struct {
	r *bufio.Scanner
}

func newWireDecoder(r io.Reader) *wireDecoder {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)
	return &wireDecoder{r: scanner}
}

func (d *wireDecoder) decode() (*message, error) {
	if !d.r.Scan() {
		if err := d.r.Err(); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		return nil, io.EOF
	}

	var msg message
	if err := json.Unmarshal(d.r.Bytes(), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// SubprocessConfig configures a subprocess oracle.
type SubprocessConfig struct {
	// Command is the executable to run.
	Command string

	// Args are passed to the executable.
	Args []string

	// StartupTimeout bounds the wait for the READY handshake.
	StartupTimeout time.Duration
}

// SubprocessOracle scores snapshots by delegating to a child process over
// a newline-delimited JSON protocol.
type SubprocessOracle struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	encoder *wireEncoder
	decoder *wireDecoder
	nextID  uint64
	closed  bool
}

// NewSubprocessOracle starts the child and waits for its READY message.
func NewSubprocessOracle(ctx context.Context, cfg SubprocessConfig) (*SubprocessOracle, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("subprocess oracle requires a command")
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = 10 * time.Second
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start oracle process: %w", err)
	}

	o := &SubprocessOracle{
		cmd:     cmd,
		stdin:   stdin,
		encoder: newWireEncoder(stdin),
		decoder: newWireDecoder(stdout),
	}

	if err := o.awaitReady(ctx, cfg.StartupTimeout); err != nil {
		_ = o.Close()
		return nil, err
	}
	return o, nil
}

// awaitReady waits for the READY handshake within the startup timeout.
func (o *SubprocessOracle) awaitReady(ctx context.Context, timeout time.Duration) error {
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		msg, err := o.decoder.decode()
		if err != nil {
			errCh <- fmt.Errorf("failed to receive READY: %w", err)
			return
		}
		if msg.Type != messageTypeReady {
			errCh <- fmt.Errorf("expected READY, got %s", msg.Type)
			return
		}
		var ready readyMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &ready); err != nil {
				errCh <- fmt.Errorf("malformed READY message: %w", err)
				return
			}
		}
		errCh <- nil
	}()

	select {
	case <-readyCtx.Done():
		return fmt.Errorf("timeout waiting for READY message")
	case err := <-errCh:
		return err
	}
}

// Score implements Oracle by sending a SCORE request and waiting for the
// matching RESULT. The call is synchronous and not cancellable once the
// request is on the wire.
func (o *SubprocessOracle) Score(ctx context.Context, snapshot Snapshot) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, fmt.Errorf("oracle process is closed")
	}

	o.nextID++
	req := scoreRequest{ID: o.nextID, Snapshot: snapshot}
	if err := o.encoder.encode(messageTypeScore, &req); err != nil {
		return 0, fmt.Errorf("failed to send score request: %w", err)
	}

	msg, err := o.decoder.decode()
	if err != nil {
		return 0, fmt.Errorf("failed to read oracle response: %w", err)
	}

	switch msg.Type {
	case messageTypeResult:
		var res scoreResult
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			return 0, fmt.Errorf("malformed RESULT message: %w", err)
		}
		if res.ID != req.ID {
			return 0, fmt.Errorf("response id %d does not match request id %d", res.ID, req.ID)
		}
		return res.Value, nil
	case messageTypeError:
		var e errorMessage
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return 0, fmt.Errorf("malformed ERROR message: %w", err)
		}
		return 0, fmt.Errorf("oracle error: %s", e.Message)
	default:
		return 0, fmt.Errorf("unexpected message type %s", msg.Type)
	}
}

// Close terminates the child process.
func (o *SubprocessOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	_ = o.stdin.Close()
	if o.cmd.Process != nil {
		_ = o.cmd.Process.Kill()
	}
	return o.cmd.Wait()
}
