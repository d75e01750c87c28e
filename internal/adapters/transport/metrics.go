package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var frameCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_frames_total",
	Help: "Inbound frames handled by type and status",
}, []string{"type", "status"})

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_commands_total",
	Help: "Command frames sent to the game server by type",
}, []string{"type"})

var peerGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chatguard_connected_peers",
	Help: "Number of connected game servers",
})
