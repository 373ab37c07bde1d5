// Package remediation executes scripted fixes on the managed instance and tells the
// operator what happened.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-selfheal/internal/audit"
	"github.com/miradorstack/mirador-selfheal/internal/metrics"
	"github.com/miradorstack/mirador-selfheal/internal/models"
)

// DefaultSubject is the notification subject line.
const DefaultSubject = "AIOps Self-Healing Notification"

// Outcomes recorded in the audit log.
const (
	OutcomeDispatched    = "dispatched"
	OutcomeFailed        = "failed"
	OutcomeUnknownAction = "unknown_action"
)

// Options configures a Handler.
type Options struct {
	InstanceID string
	Subject    string
	Playbook   *Playbook
	Audit      audit.Recorder
	Logger     *slog.Logger
}

// Handler runs remediation requests.
type Handler struct {
	dispatcher Dispatcher
	notifier   Notifier
	playbook   *Playbook
	audit      audit.Recorder
	instanceID string
	subject    string
	logger     *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(dispatcher Dispatcher, notifier Notifier, opts Options) (*Handler, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if opts.InstanceID == "" {
		return nil, errors.New("instance id is required")
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Playbook == nil {
		p, err := NewPlaybook(DefaultActions()...)
		if err != nil {
			return nil, err
		}
		opts.Playbook = p
	}
	if opts.Audit == nil {
		opts.Audit = audit.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		notifier:   notifier,
		playbook:   opts.Playbook,
		audit:      opts.Audit,
		instanceID: opts.InstanceID,
		subject:    opts.Subject,
		logger:     opts.Logger.With(slog.String("instance_id", opts.InstanceID)),
	}, nil
}

// Handle dispatches the requested action, notifies the operator and reports what
// happened. It never fails: dispatch and notification errors are folded into the result.
func (h *Handler) Handle(ctx context.Context, req models.RemediationRequest) models.RemediationResult {
	requestID := uuid.NewString()
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("action", req.Action))

	result := models.RemediationResult{Status: models.RemediationStatusCompleted}
	outcome := OutcomeUnknownAction

	action, ok := h.playbook.Lookup(req.Action)
	if !ok {
		result.Message = fmt.Sprintf("Unknown action '%s' requested. No remediation performed.", displayAction(req.Action))
		logger.Warn("unknown remediation action")
	} else {
		commandID, err := h.dispatcher.Dispatch(ctx, h.instanceID, action)
		if err != nil {
			outcome = OutcomeFailed
			result.Message = fmt.Sprintf("Remediation failed for instance %s: %v", h.instanceID, err)
			logger.Error("remediation dispatch failed", slog.Any("error", err))
		} else {
			outcome = OutcomeDispatched
			result.CommandID = commandID
			result.Message = fmt.Sprintf("Remediation successful: Sent command to %s on instance %s.", action.Description, h.instanceID)
			logger.Info("remediation dispatched", slog.String("command_id", commandID))
		}
	}
	metrics.ObserveRemediation(metricAction(ok, req.Action), metricOutcome(outcome))

	if err := h.notifier.Notify(ctx, h.subject, result.Message); err != nil {
		logger.Error("notification failed", slog.Any("error", err))
		metrics.ObserveNotification(metrics.OutcomeError)
	} else {
		result.Notified = true
		metrics.ObserveNotification(metrics.OutcomeSuccess)
	}

	entry := audit.Entry{
		ID:         requestID,
		Time:       time.Now(),
		Action:     req.Action,
		InstanceID: h.instanceID,
		Outcome:    outcome,
		Message:    result.Message,
		CommandID:  result.CommandID,
		Notified:   result.Notified,
	}
	if err := h.audit.Record(ctx, entry); err != nil {
		logger.Warn("audit record failed", slog.Any("error", err))
	}
	return result
}

// displayAction names a missing or null action "None" in operator messages, the
// wording existing notification filters already match on.
func displayAction(action string) string {
	if action == "" {
		return "None"
	}
	return action
}

// Unknown action names come from callers; keep label cardinality bounded.
func metricAction(known bool, action string) string {
	if !known {
		return "unknown"
	}
	return action
}

func metricOutcome(outcome string) string {
	if outcome == OutcomeFailed {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
