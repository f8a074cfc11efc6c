package dto

// QuotaRequestDTO is the request body for POST /quota
type QuotaRequestDTO struct {
	UserID string `json:"userId" validate:"required"`
}

// QuotaResponseDTO describes what a user may still generate
type QuotaResponseDTO struct {
	CanGenerate        bool      `json:"canGenerate"`
	SummariesUsed      int       `json:"summariesUsed"`
	SummariesRemaining Remaining `json:"summariesRemaining"`
	IsPro              bool      `json:"isPro"`
	NeedsUpgrade       bool      `json:"needsUpgrade"`
}
