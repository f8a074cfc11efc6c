package dto

import (
	"encoding/json"
)

// Remaining is a summary allowance that is either a count or "unlimited".
type Remaining struct {
	Unlimited bool
	Count     int
}

func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(r.Count)
}

// SummaryRequestDTO is the request body for POST /summaries
type SummaryRequestDTO struct {
	UserID      string `json:"userId" validate:"required"`
	ContactID   string `json:"contactId,omitempty"`
	Transcript  string `json:"transcript" validate:"required"`
	AccessToken string `json:"accessToken,omitempty"`
	Source      string `json:"source,omitempty" validate:"omitempty,max=64"`
}

// SummaryResponseDTO is returned when a summary was generated and counted
// @Summary Generated summary
// @Tags summaries
// @Produce json
// @Success 200 {object} dto.SummaryResponseDTO
// @Router /summaries [post]
type SummaryResponseDTO struct {
	Status             string    `json:"status"`
	Message            string    `json:"message"`
	Summary            string    `json:"summary"`
	SummariesUsed      int       `json:"summariesUsed"`
	SummariesRemaining Remaining `json:"summariesRemaining"`
	TokensUsed         int64     `json:"tokensUsed"`
	Cost               string    `json:"cost"`
	EngagementID       string    `json:"engagementId,omitempty"`
	ContactID          string    `json:"contactId,omitempty"`
}

// QuotaExceededDTO is the 403 body for a user at the free ceiling.
type QuotaExceededDTO struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	SummariesUsed int    `json:"summariesUsed"`
	NeedsUpgrade  bool   `json:"needsUpgrade"`
	UpgradeURL    string `json:"upgradeUrl"`
}
