package manager

import (
	"context"
	"time"

	"stemd/pkg/types"
)

// Status assembles the operator-facing snapshot for GET /status: device
// visibility, per-model residency, job counts and queue depth.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	info := m.prober.Probe(ctx)
	now := time.Now()
	return types.StatusResponse{
		State:          "ok",
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		Device: types.DeviceStatus{
			GPUAvailable: info.Available,
			Name:         info.Name,
			TotalMB:      info.TotalMB,
			FreeMB:       info.FreeMB,
		},
		Models:   m.registry.Snapshot(),
		Jobs:     m.store.Counts(),
		QueueLen: m.pool.QueueLen(),
		Workers:  m.cfg.Workers,
	}
}
