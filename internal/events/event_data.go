// Package events provides typed in-process events and a publish/subscribe bus.
package events

import (
	"encoding/json"
	"time"
)

// EventType names a kind of event
type EventType string

const (
	// RiskEvaluated is emitted after a stored portfolio has been evaluated
	RiskEvaluated EventType = "risk.evaluated"
	// AlertsRaised is emitted when an evaluation breached at least one threshold
	AlertsRaised EventType = "risk.alerts_raised"
	// HoldingsChanged is emitted when a user's holdings are added or removed
	HoldingsChanged EventType = "portfolio.holdings_changed"
	// BackupCompleted is emitted after a successful backup upload
	BackupCompleted EventType = "system.backup_completed"
	// JobFailed is emitted when a scheduled job returns an error
	JobFailed EventType = "system.job_failed"
)

// AllEventTypes lists every event type the bus carries
var AllEventTypes = []EventType{
	RiskEvaluated,
	AlertsRaised,
	HoldingsChanged,
	BackupCompleted,
	JobFailed,
}

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// Event is one published occurrence.
// UserID is empty for system-wide events.
type Event struct {
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// RiskEvaluatedData summarises an evaluation
type RiskEvaluatedData struct {
	TotalValue           float64  `json:"total_value"`
	VaR95                float64  `json:"var_95"`
	VaR99                float64  `json:"var_99"`
	RiskLevel            string   `json:"risk_level"`
	Alerts               []string `json:"alerts"`
	PositionsWithoutData int      `json:"positions_without_data"`
}

// EventType returns the event type for RiskEvaluatedData
func (d *RiskEvaluatedData) EventType() EventType {
	return RiskEvaluated
}

// AlertsRaisedData carries the alert messages of one evaluation
type AlertsRaisedData struct {
	Alerts []string `json:"alerts"`
}

// EventType returns the event type for AlertsRaisedData
func (d *AlertsRaisedData) EventType() EventType {
	return AlertsRaised
}

// HoldingsChangedData describes a holdings mutation
type HoldingsChangedData struct {
	Action     string `json:"action"` // "upserted" or "deleted"
	HoldingID  string `json:"holding_id"`
	Identifier string `json:"identifier,omitempty"`
}

// EventType returns the event type for HoldingsChangedData
func (d *HoldingsChangedData) EventType() EventType {
	return HoldingsChanged
}

// BackupCompletedData describes an uploaded backup archive
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Databases int    `json:"databases"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// JobFailedData identifies the failed job
type JobFailedData struct {
	Job   string `json:"job"`
	Error string `json:"error"`
}

// EventType returns the event type for JobFailedData
func (d *JobFailedData) EventType() EventType {
	return JobFailed
}

// UnmarshalJSON decodes Data into the concrete type for the event's Type
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		e.Data = nil
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case RiskEvaluated:
		eventData = &RiskEvaluatedData{}
	case AlertsRaised:
		eventData = &AlertsRaisedData{}
	case HoldingsChanged:
		eventData = &HoldingsChangedData{}
	case BackupCompleted:
		eventData = &BackupCompletedData{}
	case JobFailed:
		eventData = &JobFailedData{}
	default:
		eventData = &GenericEventData{Type: aux.Type}
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
