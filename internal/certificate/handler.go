package certificate

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfactory/certclaim/internal/common/errors"
	"github.com/wfactory/certclaim/internal/common/middleware"
)

// devPassHeader guards the issue endpoint.
const devPassHeader = "X-Dev-Pass"

// Handler handles HTTP requests for the certificate claim protocol.
type Handler struct {
	service *Service
	devPass string
}

// NewHandler creates a new certificate handler. devPass may be empty,
// which disables the issue endpoint entirely.
func NewHandler(service *Service, devPass string) *Handler {
	return &Handler{service: service, devPass: devPass}
}

// RegisterRoutes registers certificate routes on the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	cert := rg.Group("/cert")
	{
		cert.POST("/verify", h.Verify)
		cert.POST("/download", h.Download)
		cert.GET("/preview", h.Preview)
		cert.POST("/issue", h.Issue)
	}
}

// Verify godoc
// @Summary Verify certificate ownership
// @Description Verify a claim token and wallet signature against on-chain ownership. Read-only and retryable.
// @Tags cert
// @Accept json
// @Produce json
// @Param request body ClaimRequest true "Token, wallet and signature"
// @Success 200 {object} middleware.SuccessResponse{data=VerifyResponse}
// @Failure 400 {object} middleware.ErrorResponse "Malformed, expired or mismatched token"
// @Failure 401 {object} middleware.ErrorResponse "Bad signature or not the owner"
// @Failure 502 {object} middleware.ErrorResponse "Ownership lookup failed"
// @Router /api/v1/cert/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, errors.InvalidInput(err.Error()))
		return
	}

	result, err := h.service.Verify(c.Request.Context(), req.Token, req.Wallet, req.Signature)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, ToVerifyResponse(result))
}

// Download godoc
// @Summary Download the certificate
// @Description Re-verify ownership with a download-action signature, consume the single-use lock, and return the watermarked PNG.
// @Tags cert
// @Accept json
// @Produce png
// @Param request body ClaimRequest true "Token, wallet and signature"
// @Success 200 {file} binary
// @Failure 400 {object} middleware.ErrorResponse "Malformed, expired or mismatched token"
// @Failure 401 {object} middleware.ErrorResponse "Bad signature or not the owner"
// @Failure 410 {object} middleware.ErrorResponse "Certificate already downloaded"
// @Router /api/v1/cert/download [post]
func (h *Handler) Download(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, errors.InvalidInput(err.Error()))
		return
	}

	artifact, err := h.service.Download(c.Request.Context(), req.Token, req.Wallet, req.Signature)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondPNG(c, artifact.PNG, artifact.Filename)
}

// Preview godoc
// @Summary Preview the certificate
// @Description Render the unverified preview for a structurally valid, unexpired token. No wallet interaction.
// @Tags cert
// @Produce png
// @Param token query string true "Claim token"
// @Success 200 {file} binary
// @Failure 400 {object} middleware.ErrorResponse "Malformed or expired token"
// @Router /api/v1/cert/preview [get]
func (h *Handler) Preview(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		middleware.RespondError(c, errors.InvalidInput("Missing token"))
		return
	}

	png, err := h.service.Preview(c.Request.Context(), token)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondPNG(c, png, "")
}

// Issue godoc
// @Summary Issue a claim token
// @Description Sign a fresh claim token for a tokenId. Guarded by the X-Dev-Pass header; the production issuer is the mint flow.
// @Tags cert
// @Accept json
// @Produce json
// @Param X-Dev-Pass header string true "Issuer pass"
// @Param request body IssueRequest true "Token id and optional TTL"
// @Success 200 {object} middleware.SuccessResponse{data=IssueResponse}
// @Failure 403 {object} middleware.ErrorResponse "Missing or wrong pass"
// @Router /api/v1/cert/issue [post]
func (h *Handler) Issue(c *gin.Context) {
	if h.devPass == "" {
		middleware.RespondError(c, errors.Forbidden("Token issuance is disabled"))
		return
	}
	pass := c.GetHeader(devPassHeader)
	if subtle.ConstantTimeCompare([]byte(pass), []byte(h.devPass)) != 1 {
		middleware.RespondError(c, errors.Forbidden("Invalid pass"))
		return
	}

	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, errors.InvalidInput(err.Error()))
		return
	}

	token, url, err := h.service.Issue(req.TokenID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, IssueResponse{Token: token, URL: url})
}
