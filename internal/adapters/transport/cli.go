package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
)

// LineTransport reads JSON frames line by line, typically from stdin, and
// writes replies and commands as JSON lines
type LineTransport struct {
	in      io.Reader
	out     *linePeer
	handler *Handler
	hub     *Hub
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	peerID uint64
	once   sync.Once
}

// NewLineTransport creates a transport over in and out
func NewLineTransport(in io.Reader, out io.Writer, handler *Handler, hub *Hub, logger *zap.Logger) *LineTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &LineTransport{
		in:      in,
		out:     &linePeer{w: out},
		handler: handler,
		hub:     hub,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// linePeer writes newline terminated frames
type linePeer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *linePeer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.w.Write(data); err != nil {
		return err
	}
	_, err := p.w.Write([]byte{'\n'})
	return err
}

func (p *linePeer) close() {}

// Start reads frames until the input ends
func (t *LineTransport) Start() error {
	t.peerID = t.hub.subscribe(t.out)
	go t.run()
	return nil
}

func (t *LineTransport) run() {
	defer close(t.done)
	defer t.hub.unsubscribe(t.peerID)

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if t.ctx.Err() != nil {
			return
		}

		reply := t.handler.HandleBytes(t.ctx, line)
		if err := t.out.write(reply); err != nil {
			t.logger.Error("Failed to write reply", zap.Error(err))
			return
		}
	}
	if err := scanner.Err(); err != nil {
		t.logger.Error("Failed to read frames", zap.Error(err))
	}
}

// Done is closed once the input ended
func (t *LineTransport) Done() <-chan struct{} {
	return t.done
}

// Stop cancels in-flight handling. A blocked read on the input only returns
// once the input is closed.
func (t *LineTransport) Stop() error {
	t.once.Do(t.cancel)
	return nil
}
