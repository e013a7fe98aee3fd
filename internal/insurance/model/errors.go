package model

import "fmt"

// ErrDuplicateDevice is returned when a device id is registered twice.
type ErrDuplicateDevice struct{ DeviceID string }

func (e *ErrDuplicateDevice) Error() string {
	return fmt.Sprintf("device %q is already registered", e.DeviceID)
}

// ErrUnknownDevice is returned when an operation references a device id
// that has never been registered.
type ErrUnknownDevice struct{ DeviceID string }

func (e *ErrUnknownDevice) Error() string {
	return fmt.Sprintf("device %q is not registered", e.DeviceID)
}

// ErrUnregisteredParticipant is returned when a threat report names a
// reporter that has not joined the reputation network.
type ErrUnregisteredParticipant struct{ ParticipantID string }

func (e *ErrUnregisteredParticipant) Error() string {
	return fmt.Sprintf("participant %q is not registered", e.ParticipantID)
}

// ErrUnknownReport is returned when verification targets a report id
// that does not exist.
type ErrUnknownReport struct{ ReportID string }

func (e *ErrUnknownReport) Error() string {
	return fmt.Sprintf("threat report %q not found", e.ReportID)
}

// ErrNoAssessment is returned when a premium quote is requested for a
// device that has never been risk-assessed.
type ErrNoAssessment struct{ DeviceID string }

func (e *ErrNoAssessment) Error() string {
	return fmt.Sprintf("device %q has no risk assessment on record", e.DeviceID)
}

// ErrInvalidCoverageTier is returned for coverage tier names outside
// the configured tier table.
type ErrInvalidCoverageTier struct{ Tier string }

func (e *ErrInvalidCoverageTier) Error() string {
	return fmt.Sprintf("unknown coverage tier %q", e.Tier)
}

// ErrInvalidScore is returned when a score argument falls outside [0,1]
// or a severity/threat level is outside the enumerated set.
type ErrInvalidScore struct {
	Field string
	Msg   string
}

func (e *ErrInvalidScore) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
