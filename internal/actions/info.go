package actions

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

func (h *handlers) getTime(context.Context, domain.Params) domain.Result {
	now := h.Now()
	return domain.OKf("It's %s", now.Format("3:04 PM")).WithData("time", now.Format(time.RFC3339))
}

func (h *handlers) getDate(context.Context, domain.Params) domain.Result {
	now := h.Now()
	return domain.OKf("Today is %s", now.Format("Monday, January 2, 2006")).WithData("date", now.Format(time.DateOnly))
}

func (h *handlers) systemInfo(context.Context, domain.Params) domain.Result {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r := domain.OKf("Running on %s (%s/%s) with %d CPUs", host, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	r.Statistics = map[string]float64{
		"cpus":       float64(runtime.NumCPU()),
		"goroutines": float64(runtime.NumGoroutine()),
		"heap_mb":    float64(mem.HeapAlloc) / (1 << 20),
		"sys_mb":     float64(mem.Sys) / (1 << 20),
	}
	return r.WithData("host", host).WithData("os", runtime.GOOS).WithData("arch", runtime.GOARCH)
}

// sleep blocks the dispatch goroutine for the requested time. It is not
// cancellable: a workflow step that waits always waits in full.
func (h *handlers) sleep(_ context.Context, p domain.Params) domain.Result {
	secs := p.Int("seconds", 0)
	if secs <= 0 {
		return domain.MissingParam("seconds")
	}
	secs = min(secs, maxSleepSeconds)
	h.Sleep(time.Duration(secs) * time.Second)
	return domain.OKf("Waited %d seconds", secs)
}

const maxSleepSeconds = 300
