package listing

import (
	"time"

	"github.com/google/uuid"

	"github.com/crosslist/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Operation and trigger
// ---------------------------------------------------------------------------

// OperationKind names the engine operation a sync log entry records
type OperationKind string

const (
	// OperationCreate is a single-platform listing create
	OperationCreate OperationKind = "create"
	// OperationUpdate is a listing update
	OperationUpdate OperationKind = "update"
	// OperationDelete is a listing removal
	OperationDelete OperationKind = "delete"
	// OperationSync is a product-to-listings propagation
	OperationSync OperationKind = "sync"
	// OperationDelist is the cross-delist fired on a sale
	OperationDelist OperationKind = "delist"
	// OperationRelist re-creates a previously ended listing
	OperationRelist OperationKind = "relist"
	// OperationReconcile is a scheduled remote-state comparison
	OperationReconcile OperationKind = "reconcile"
)

// IsValid returns true if the kind is a known value
func (k OperationKind) IsValid() bool {
	switch k {
	case OperationCreate, OperationUpdate, OperationDelete, OperationSync,
		OperationDelist, OperationRelist, OperationReconcile:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationKind
func (k OperationKind) String() string {
	return string(k)
}

// TriggerSource names what initiated an operation
type TriggerSource string

const (
	// TriggerUser is a direct API call
	TriggerUser TriggerSource = "user"
	// TriggerSystem is internal engine activity such as a cross-delist
	TriggerSystem TriggerSource = "system"
	// TriggerWebhook is an inbound platform event
	TriggerWebhook TriggerSource = "webhook"
	// TriggerScheduled is the reconciliation scheduler
	TriggerScheduled TriggerSource = "scheduled"
)

// IsValid returns true if the source is a known value
func (t TriggerSource) IsValid() bool {
	switch t {
	case TriggerUser, TriggerSystem, TriggerWebhook, TriggerScheduled:
		return true
	default:
		return false
	}
}

// String returns the string representation of TriggerSource
func (t TriggerSource) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// Per-platform results
// ---------------------------------------------------------------------------

// ResultStatus is the outcome of one platform within an operation
type ResultStatus string

const (
	// ResultSuccess indicates the platform call completed
	ResultSuccess ResultStatus = "success"
	// ResultFailed indicates the platform call errored
	ResultFailed ResultStatus = "failed"
	// ResultSkipped indicates the platform was not attempted
	ResultSkipped ResultStatus = "skipped"
	// ResultPending indicates the platform call has not finished yet
	ResultPending ResultStatus = "pending"
)

// PlatformResult records one platform's outcome inside a sync log entry
type PlatformResult struct {
	Platform          Platform       `json:"platform"`
	Status            ResultStatus   `json:"status"`
	PlatformListingID string         `json:"platform_listing_id,omitempty"`
	ErrorCode         string         `json:"error_code,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
	DurationMS        int64          `json:"duration_ms"`
}

// ---------------------------------------------------------------------------
// Aggregate status
// ---------------------------------------------------------------------------

// AggregateStatus summarizes an operation across all attempted platforms
type AggregateStatus string

const (
	// AggregateInProgress indicates the operation has not completed yet
	AggregateInProgress AggregateStatus = "in_progress"
	// AggregateSuccess indicates every attempted platform succeeded
	AggregateSuccess AggregateStatus = "success"
	// AggregatePartial indicates a mix of successes and failures
	AggregatePartial AggregateStatus = "partial"
	// AggregateFailed indicates every attempted platform failed
	AggregateFailed AggregateStatus = "failed"
)

// IsValid returns true if the status is a known value
func (s AggregateStatus) IsValid() bool {
	switch s {
	case AggregateInProgress, AggregateSuccess, AggregatePartial, AggregateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of AggregateStatus
func (s AggregateStatus) String() string {
	return string(s)
}

// IsFinal returns true once the operation can no longer change
func (s AggregateStatus) IsFinal() bool {
	return s != AggregateInProgress
}

// ---------------------------------------------------------------------------
// SyncLogEntry entity
// ---------------------------------------------------------------------------

// SyncLogEntry is the append-only audit record of one engine operation. One
// entry covers all platforms the operation touched; skipped platforms do not
// influence the aggregate status.
type SyncLogEntry struct {
	shared.BaseEntity

	// ProductID references the catalog product the operation acted on
	ProductID uuid.UUID
	// Operation is the engine operation recorded
	Operation OperationKind
	// Trigger is what initiated the operation
	Trigger TriggerSource
	// Status is the aggregate outcome
	Status AggregateStatus
	// Results are the per-platform outcomes
	Results []PlatformResult
	// StartedAt and CompletedAt bound the operation
	StartedAt   time.Time
	CompletedAt *time.Time
	// DurationMS is the wall-clock duration in whole milliseconds
	DurationMS int64
	// Detail is a free-form operation annotation
	Detail string
}

// NewSyncLogEntry opens an in-progress audit record for an operation
func NewSyncLogEntry(productID uuid.UUID, op OperationKind, trigger TriggerSource) (*SyncLogEntry, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "product ID is required")
	}
	if !op.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "unknown operation kind")
	}
	if !trigger.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "unknown trigger source")
	}
	return &SyncLogEntry{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		Operation:  op,
		Trigger:    trigger,
		Status:     AggregateInProgress,
		Results:    make([]PlatformResult, 0),
		StartedAt:  time.Now(),
	}, nil
}

// AddResult appends one platform's outcome
func (e *SyncLogEntry) AddResult(r PlatformResult) {
	e.Results = append(e.Results, r)
}

// Complete closes the entry and derives the aggregate status: success when
// every attempted platform succeeded, failed when every attempted platform
// failed, partial otherwise. Skipped and pending results are not attempts.
func (e *SyncLogEntry) Complete() error {
	if e.Status.IsFinal() {
		return ErrSyncLogAlreadyFinal
	}
	var succeeded, failed int
	for _, r := range e.Results {
		switch r.Status {
		case ResultSuccess:
			succeeded++
		case ResultFailed:
			failed++
		}
	}
	switch {
	case failed == 0 && succeeded > 0:
		e.Status = AggregateSuccess
	case succeeded == 0 && failed > 0:
		e.Status = AggregateFailed
	case succeeded > 0 && failed > 0:
		e.Status = AggregatePartial
	default:
		// nothing was attempted
		e.Status = AggregateSuccess
	}
	now := time.Now()
	e.CompletedAt = &now
	e.DurationMS = now.Sub(e.StartedAt).Milliseconds()
	e.UpdatedAt = now
	return nil
}

// Succeeded returns the platforms that completed successfully
func (e *SyncLogEntry) Succeeded() []Platform {
	out := make([]Platform, 0, len(e.Results))
	for _, r := range e.Results {
		if r.Status == ResultSuccess {
			out = append(out, r.Platform)
		}
	}
	return out
}

// Failed returns the platforms that errored
func (e *SyncLogEntry) Failed() []Platform {
	out := make([]Platform, 0, len(e.Results))
	for _, r := range e.Results {
		if r.Status == ResultFailed {
			out = append(out, r.Platform)
		}
	}
	return out
}
