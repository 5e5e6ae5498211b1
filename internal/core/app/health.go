package app

import (
	"context"
	"fmt"
	"time"

	"crashmap/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	RunID      string            `json:"runId"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		RunID:      s.app.runID,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	// Projects
	if len(s.app.projects) == 0 {
		status.Status = "degraded"
		status.Components["projects"] = "none configured"
	} else {
		loaded := 0
		for _, p := range s.app.projects {
			if _, ok := p.Prefix().Value(); ok {
				loaded++
			}
		}
		status.Components["projects"] = fmt.Sprintf("ok (%d/%d loaded)", loaded, len(s.app.projects))
	}

	status.Components["sourcemaps"] = fmt.Sprintf("ok (%d cached)", s.app.maps.Len())
	status.Components["documents"] = fmt.Sprintf("ok (%d processed)", s.app.documentCount())
	status.Components["memory"] = fmt.Sprintf("%d MB heap", util.HeapAllocMB())

	return status
}
