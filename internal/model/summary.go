package model

import "time"

// SummaryRequest is one invocation of the summary workflow.
type SummaryRequest struct {
	UserID      string
	ContactID   string
	Transcript  string
	AccessToken string
	Source      string
	// RequestID ties the workflow's log lines to the HTTP request that started it.
	RequestID   string
}

// WantsTimeline reports whether the caller supplied what the CRM write needs.
func (r SummaryRequest) WantsTimeline() bool {
	return r.AccessToken != "" && r.ContactID != ""
}

// Generation is the AI provider's output for a transcript.
type Generation struct {
	Text       string
	TokensUsed int64
}

// TimelineNote is a note created on a CRM record.
type TimelineNote struct {
	EngagementID string
	ContactID    string
}

// SummaryResult is what the workflow reports back after a successful generation.
type SummaryResult struct {
	Summary       string
	TokensUsed    int64
	Cost          string
	SummariesUsed int
	IsPro         bool
	// Remaining is meaningful only when IsPro is false.
	Remaining int
	// Timeline is nil when nothing was written to the CRM.
	Timeline *TimelineNote
}

// UsageEvent is published after a summary has been counted against a user's quota.
type UsageEvent struct {
	UserID        string    `json:"userId"`
	SummariesUsed int       `json:"summariesUsed"`
	TokensUsed    int64     `json:"tokensUsed"`
	Source        string    `json:"source,omitempty"`
	EngagementID  string    `json:"engagementId,omitempty"`
	GeneratedAt   time.Time `json:"generatedAt"`
}
