package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PeersAlive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "peersync_peers_alive", Help: "Currently alive peers"},
	)
	CatalogFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "peersync_catalog_files", Help: "Files in the last local catalog"},
	)
	SyncCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "peersync_cycles_total", Help: "Completed sync cycles"},
	)
	TransferSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "peersync_transfers_success_total", Help: "Successful file transfers"},
		[]string{"direction"},
	)
	TransferFail = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "peersync_transfers_fail_total", Help: "Failed file transfers"},
		[]string{"direction"},
	)
	TransferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "peersync_transfer_bytes_total", Help: "Payload bytes moved"},
		[]string{"direction"},
	)
)

func Init() {
	prometheus.MustRegister(PeersAlive, CatalogFiles, SyncCycles)
	prometheus.MustRegister(TransferSuccess, TransferFail, TransferBytes)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
