package dto

// CheckoutRequestDTO is the request body for POST /checkout
type CheckoutRequestDTO struct {
	UserID    string `json:"userId" validate:"required"`
	UserEmail string `json:"userEmail,omitempty" validate:"omitempty,email"`
}

type CheckoutResponseDTO struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type WebhookAckDTO struct {
	Received bool `json:"received"`
}

// OAuthTokenResponseDTO is returned by the OAuth callback
type OAuthTokenResponseDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// ErrorResponseDTO is the body of every failed request. Details is set on 500s only.
type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
