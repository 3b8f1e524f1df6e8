package runworker

import (
	"time"

	"glslang-runner/internal/runs"
)

type RunRequestedEnvelope struct {
	EventName string                     `json:"event_name"`
	EventID   string                     `json:"event_id"`
	TS        time.Time                  `json:"ts"`
	Data      runs.RunRequestedEventData `json:"data"`
}
