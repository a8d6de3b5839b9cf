package models

// Profile of a registered wallet.
type Profile struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
	Username      string `json:"username,omitempty" validate:"omitempty,min=1,max=50"`
	Bio           string `json:"bio,omitempty" validate:"max=160"`
	ProfilePicURL string `json:"profile_pic_url,omitempty" validate:"omitempty,url"`
	IsRegistered  bool   `json:"is_registered,omitempty"`
}

// VerifyRequest is the body of POST /auth/verify.
type VerifyRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
	Message       string `json:"message" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

// VerifyResponse is the answer of POST /auth/verify.
type VerifyResponse struct {
	Valid        bool `json:"valid"`
	IsRegistered bool `json:"is_registered"`
}

// ErrorResponse is the error body the API sends on non-success statuses.
type ErrorResponse struct {
	Message string `json:"message"`
}
