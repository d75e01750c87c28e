package transport

import (
	"sync"

	"go.uber.org/zap"
)

// peer is a connected game server that frames are written to
type peer interface {
	write(data []byte) error
	close()
}

// Hub fans command frames out to connected peers
type Hub struct {
	mu     sync.RWMutex
	peers  map[uint64]peer
	nextID uint64
	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		peers:  make(map[uint64]peer),
		logger: logger,
	}
}

// subscribe registers p and returns its handle for unsubscribe
func (h *Hub) subscribe(p peer) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.peers[h.nextID] = p
	peerGauge.Set(float64(len(h.peers)))
	return h.nextID
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	p, ok := h.peers[id]
	delete(h.peers, id)
	peerGauge.Set(float64(len(h.peers)))
	h.mu.Unlock()

	if ok {
		p.close()
	}
}

// Peers returns the number of connected peers
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Send writes cmd to every peer. Peers failing the write are dropped.
func (h *Hub) Send(cmd Command) {
	data, err := Encode(cmd)
	if err != nil {
		h.logger.Error("Failed to encode command", zap.String("type", cmd.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make(map[uint64]peer, len(h.peers))
	for id, p := range h.peers {
		targets[id] = p
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.logger.Debug("No peer connected, dropping command", zap.String("type", cmd.Type))
		return
	}

	for id, p := range targets {
		if err := p.write(data); err != nil {
			h.logger.Warn("Failed to write command, dropping peer", zap.Uint64("peer", id), zap.Error(err))
			h.unsubscribe(id)
		}
	}
	commandCount.WithLabelValues(cmd.Type).Inc()
}

// CloseAll disconnects every peer
func (h *Hub) CloseAll() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[uint64]peer)
	peerGauge.Set(0)
	h.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}
