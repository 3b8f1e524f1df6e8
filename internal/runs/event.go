package runs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"glslang-runner/internal/spawn"
)

// RunRequestedEventName is the event published to RabbitMQ and sent to
// Inngest to request a toolchain run.
const RunRequestedEventName = "toolchain/run.requested"

type RunRequestedEventData struct {
	Tool string   `json:"tool"`
	Args []string `json:"args"`
}

// EventID derives a deterministic id from the tool and its arguments, so
// the same request enqueued twice is deduplicated.
func EventID(tool string, args []string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(tool)))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return "runsha256:" + hex.EncodeToString(h.Sum(nil))
}

// ArgsFromAny accepts the argument shapes of the HTTP API and flattens them
// into the argument vector carried on a run request event.
func ArgsFromAny(v any) ([]string, error) {
	opts, err := spawn.FromAny(v)
	if err != nil {
		return nil, err
	}
	req, err := spawn.Normalize(opts)
	if err != nil {
		return nil, err
	}
	if req.Args == nil {
		return []string{}, nil
	}
	return req.Args, nil
}
