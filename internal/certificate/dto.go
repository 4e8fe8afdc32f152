package certificate

// ============================================================================
// Request DTOs
// ============================================================================

// ClaimRequest is the body of both verify and download calls.
type ClaimRequest struct {
	// Token is the opaque three-segment claim token.
	Token string `json:"token" binding:"required"`
	// Wallet is the address claiming ownership.
	Wallet string `json:"wallet" binding:"required,len=42" example:"0x742d35Cc6634C0532925a3b844Bc454e4438f44e"`
	// Signature: 0x prefix + 130 hex chars (65 bytes)
	Signature string `json:"signature" binding:"required,len=132" example:"0x1234...abcd"`
}

// IssueRequest is the body of the dev-pass-guarded issue call.
type IssueRequest struct {
	TokenID    int64 `json:"token_id" binding:"min=0" example:"18"`
	TTLSeconds int64 `json:"ttl_seconds,omitempty" binding:"omitempty,min=60" example:"1800"`
}

// ============================================================================
// Response DTOs
// ============================================================================

// VerifyResponse is the success body of the verify phase.
type VerifyResponse struct {
	ChainID    int64  `json:"chain_id" example:"137"`
	TokenID    int64  `json:"token_id" example:"5"`
	Contract   string `json:"contract" example:"0x6e7b6c3db7b6a6f2a0bd6a2ff77bcae0cccf4ade"`
	Owner      string `json:"owner" example:"0x742d35cc6634c0532925a3b844bc454e4438f44e"`
	OpenseaURL string `json:"opensea_url"`
}

// IssueResponse carries a freshly signed claim token.
type IssueResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// ToVerifyResponse converts a service result to the API shape.
func ToVerifyResponse(r *VerifyResult) *VerifyResponse {
	if r == nil {
		return nil
	}
	return &VerifyResponse{
		ChainID:    r.ChainID,
		TokenID:    r.TokenID,
		Contract:   r.Contract,
		Owner:      r.Owner,
		OpenseaURL: r.OpenseaURL,
	}
}
