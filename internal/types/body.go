package types

import "time"

// =============================================================================
// BODY HAL TYPES
// =============================================================================
//
// The cognitive core only emits abstract intents and consumes task feedback;
// planning and actuation belong to the body host on the far side of the
// body bridge. These types define that boundary.

// IntentKind enumerates the abstract physical actions a body may support.
type IntentKind string

const (
	IntentMove      IntentKind = "move"
	IntentGesture   IntentKind = "gesture"
	IntentLook      IntentKind = "look"
	IntentGrasp     IntentKind = "grasp"
	IntentSpeak     IntentKind = "speak"
	IntentExpress   IntentKind = "express"
	IntentSystem    IntentKind = "system"
	IntentComposite IntentKind = "composite"
)

// CompositeMode orders the children of a composite intent.
type CompositeMode string

const (
	CompositeSequential CompositeMode = "sequential"
	CompositeParallel   CompositeMode = "parallel"
)

// BodyIntent is the payload of a body-intent signal.
type BodyIntent struct {
	Kind     IntentKind
	Params   map[string]string
	Mode     CompositeMode // composite only
	Children []BodyIntent  // composite only
}

func (BodyIntent) isPayload() {}

// TaskStatus is the task-level state machine:
// pending -> planning -> executing -> {completed | failed | aborted}.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskPlanning  TaskStatus = "planning"
	TaskExecuting TaskStatus = "executing"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskAborted   TaskStatus = "aborted"
)

// Terminal reports whether the status ends the task.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskAborted
}

// CanTransition validates one edge of the task state machine.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskPending:
		return next == TaskPlanning || next == TaskAborted
	case TaskPlanning:
		return next == TaskExecuting || next == TaskFailed || next == TaskAborted
	case TaskExecuting:
		return next.Terminal()
	default:
		return false
	}
}

// StepStatus is the per-step state machine:
// pending -> running -> {completed | failed | skipped}.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// TaskStep is one unit of a decomposed task. Owned by the body host's task
// manager; mirrored here so feedback frames can be decoded.
type TaskStep struct {
	ID         string     `json:"id"`
	Action     IntentKind `json:"action"`
	Status     StepStatus `json:"status"`
	MaxRetries int        `json:"max_retries"`
	Attempts   int        `json:"attempts"`
	DependsOn  []string   `json:"depends_on"` // step ids that must complete first
}

// Task is the body host's decomposition of one intent.
type Task struct {
	ID        string     `json:"id"`
	Intent    IntentKind `json:"intent"`
	Status    TaskStatus `json:"status"`
	Steps     []TaskStep `json:"steps"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BodyFeedback is the payload of a body-feedback signal.
type BodyFeedback struct {
	TaskID string
	Status TaskStatus
	Reason string // populated on failed/aborted
}

func (BodyFeedback) isPayload() {}

// CapabilityManifest describes what the connected body can actually do.
type CapabilityManifest struct {
	BodyID       string       `json:"body_id"`
	Capabilities []IntentKind `json:"capabilities"`
}

// Supports reports whether the manifest covers an intent kind. Composite
// intents are supported when every child is.
func (m CapabilityManifest) Supports(intent BodyIntent) bool {
	if intent.Kind == IntentComposite {
		for _, child := range intent.Children {
			if !m.Supports(child) {
				return false
			}
		}
		return true
	}
	for _, c := range m.Capabilities {
		if c == intent.Kind {
			return true
		}
	}
	return false
}

// BodyCapability is the payload of a body-capability signal.
type BodyCapability struct {
	Manifest CapabilityManifest
}

func (BodyCapability) isPayload() {}
