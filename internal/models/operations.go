package models

import "time"

// LogMatch is a single log line returned by the log-query service.
type LogMatch struct {
	Timestamp time.Time
	Message   string
}

// LogSummary condenses recent error logs for the operator.
type LogSummary struct {
	Summary string     `json:"summary"`
	Matches []LogMatch `json:"-"`
}

// RemediationRequest names the action an external orchestrator wants executed.
type RemediationRequest struct {
	Action string `json:"action"`
}

// RemediationResult reports what the remediation handler did.
type RemediationResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	CommandID string `json:"command_id,omitempty"`
	Notified  bool   `json:"notified"`
}

// RemediationStatusCompleted is reported once the handler has finished, whatever the outcome.
const RemediationStatusCompleted = "Completed"
