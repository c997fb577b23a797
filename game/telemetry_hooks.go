package game

import "log/slog"

// flushTelemetry flushes the stats window when it has elapsed.
func (g *Game) flushTelemetry() {
	tick := g.sim.Ticks()
	if !g.collector.ShouldFlush(tick) {
		return
	}

	g.particleBuf = g.sim.Particles(g.particleBuf[:0])
	stats := g.collector.Flush(tick, g.particleBuf, g.sim.Field())
	perfStats := g.perfCollector.Stats()
	g.lastStats = stats

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
