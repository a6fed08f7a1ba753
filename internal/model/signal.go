package model

// ReadinessState is the lifecycle state of the backend readiness poller.
type ReadinessState string

const (
	StateProbing ReadinessState = "probing"
	StateReady   ReadinessState = "ready"
	StateDebug   ReadinessState = "debug"
)

// Readiness is a point-in-time view of the poller.
type Readiness struct {
	MountID      string         `json:"mount_id"`
	State        ReadinessState `json:"state"`
	AttemptCount int            `json:"attempt_count"`
	Progress     float64        `json:"progress"` // 0..100
}

// Ready reports whether the chart stack may be shown.
func (r Readiness) Ready() bool { return r.State == StateReady }
