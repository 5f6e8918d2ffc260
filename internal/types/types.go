package types

// EventStatus represents the lifecycle state of an event.
type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusProcessing EventStatus = "processing"
	StatusCompleted  EventStatus = "completed"
	StatusFailed     EventStatus = "failed"
)

// IsValid reports whether the status is one of the known states.
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ScopeLevel selects which scope column bounds a query.
type ScopeLevel string

const (
	LevelOrg       ScopeLevel = "org"
	LevelWorkspace ScopeLevel = "workspace"
	LevelProject   ScopeLevel = "project"
	LevelRepo      ScopeLevel = "repo"
)

// IsValid reports whether the level is one of the known levels.
func (l ScopeLevel) IsValid() bool {
	switch l {
	case LevelOrg, LevelWorkspace, LevelProject, LevelRepo:
		return true
	}
	return false
}

// Scope is the resolved tenant-addressing tuple for an operation.
// OrgID is always set after resolution; the other levels may be nil.
type Scope struct {
	OrgID       string  `json:"org_id"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
	ProjectID   *string `json:"project_id,omitempty"`
	RepoID      *string `json:"repo_id,omitempty"`
}

// ScopeOverrides carries per-call scope values. A nil field means "not
// provided"; a non-nil field set to "none", "null", or whitespace means
// "clear this level for this call".
type ScopeOverrides struct {
	Org       *string
	Workspace *string
	Project   *string
	Repo      *string
}

// StoredScope is the saved context persisted in the metadata table.
type StoredScope struct {
	OrgID       *string `json:"org_id"`
	WorkspaceID *string `json:"workspace_id"`
	ProjectID   *string `json:"project_id"`
	RepoID      *string `json:"repo_id"`
}

// Event is the unit of work on the queue.
type Event struct {
	ID            string      `json:"id"`
	Topic         string      `json:"topic"`
	Body          string      `json:"body"`
	Metadata      *string     `json:"metadata"`
	CorrelationID *string     `json:"correlation_id"`
	ParentID      *string     `json:"parent_id"`
	Status        EventStatus `json:"status"`
	Source        string      `json:"source"`
	OrgID         *string     `json:"org_id"`
	WorkspaceID   *string     `json:"workspace_id"`
	ProjectID     *string     `json:"project_id"`
	RepoID        *string     `json:"repo_id"`
	CreatedAt     int64       `json:"created_at"`
	ProcessedAt   *int64      `json:"processed_at"`
	ClaimedBy     *string     `json:"claimed_by"`
	ClaimedAt     *int64      `json:"claimed_at"`
	ExpiresAt     *int64      `json:"expires_at"`
}

// Topic is a named channel with optional persistent instructions.
type Topic struct {
	Name         string  `json:"name"`
	SystemPrompt *string `json:"system_prompt"`
	Description  *string `json:"description"`
	CreatedAt    int64   `json:"created_at"`
}

// ClaimedEvent is an event joined with its topic's system prompt, the
// payload shape handed to consumers after a claim.
type ClaimedEvent struct {
	Event
	SystemPrompt *string `json:"system_prompt"`
}

// NewEventInput describes an event to publish.
type NewEventInput struct {
	Topic         string
	Body          string
	Metadata      *string
	CorrelationID *string
	ParentID      *string
	Source        string
	Scope         Scope
}

// ClaimOptions selects the next pending event for a consumer.
type ClaimOptions struct {
	Topic           string
	Agent           string
	Scope           Scope
	Level           ScopeLevel // empty means "most specific available"
	IncludeUnscoped bool
}

// HandoffClaimOptions is ClaimOptions narrowed to a specific recipient.
type HandoffClaimOptions struct {
	ClaimOptions
	Recipient string
}

// CleanupOptions bounds retention-based deletion.
type CleanupOptions struct {
	CompletedRetentionDays int
	PendingRetentionDays   int
	Scope                  *Scope
	Level                  ScopeLevel
	IncludeUnscoped        bool
}
