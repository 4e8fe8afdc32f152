package certificate

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/wfactory/certclaim/internal/common/errors"
	"github.com/wfactory/certclaim/internal/render"
	"github.com/wfactory/certclaim/pkg/certlock"
	"github.com/wfactory/certclaim/pkg/certmsg"
	"github.com/wfactory/certclaim/pkg/certtoken"
	"github.com/wfactory/certclaim/pkg/chain"
	"github.com/wfactory/certclaim/pkg/ethsig"
)

const minTokenTTL = time.Minute

// Config carries the immutable deployment identity of the service.
type Config struct {
	// Secret signs and verifies claim tokens.
	Secret []byte
	// ChainID every accepted token must carry.
	ChainID int64
	// Contract is the deployed NFT contract every token must be bound
	// to. Stored lowercased; comparisons are case-insensitive.
	Contract string
	// TokenTTL is the default validity window for issued tokens.
	TokenTTL time.Duration
	// BaseURL prefixes claim URLs from Issue.
	BaseURL string
}

// Service implements the two-phase ownership-proof protocol: verify
// (read-only, idempotent) and download (consumes the once-lock, then
// renders). Every request re-runs the full authentication cascade;
// there is no server-side session between the two phases.
type Service struct {
	cfg       Config
	lock      certlock.Store
	recoverer ethsig.Recoverer
	reader    chain.Reader
	renderer  render.Renderer
	logger    *zap.Logger
}

// NewService creates a certificate service.
func NewService(cfg Config, lock certlock.Store, recoverer ethsig.Recoverer, reader chain.Reader, renderer render.Renderer, logger *zap.Logger) *Service {
	cfg.Contract = strings.ToLower(cfg.Contract)
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	return &Service{
		cfg:       cfg,
		lock:      lock,
		recoverer: recoverer,
		reader:    reader,
		renderer:  renderer,
		logger:    logger,
	}
}

// VerifyResult is the success response of the verify phase.
type VerifyResult struct {
	ChainID    int64
	TokenID    int64
	Contract   string
	Owner      string
	OpenseaURL string
}

// Artifact is a rendered certificate ready to stream to the caller.
type Artifact struct {
	Filename string
	PNG      []byte
}

// Verify runs the read-only ownership proof: token integrity,
// deployment binding, wallet signature over the "verify" canonical
// message, and the on-chain ownerOf read. It mutates nothing and is
// safe to retry.
func (s *Service) Verify(ctx context.Context, token, wallet, signature string) (*VerifyResult, error) {
	payload, owner, err := s.authenticate(ctx, certmsg.ActionVerify, token, wallet, signature)
	if err != nil {
		return nil, err
	}

	s.logger.Info("certificate verified",
		zap.Int64("token_id", payload.TokenID),
		zap.String("owner", owner.Hex()),
	)

	return &VerifyResult{
		ChainID:    payload.ChainID,
		TokenID:    payload.TokenID,
		Contract:   s.cfg.Contract,
		Owner:      owner.Hex(),
		OpenseaURL: openseaURL(payload.ChainID, s.cfg.Contract, payload.TokenID),
	}, nil
}

// Download repeats the full proof for the "download" action, consumes
// the once-lock, and renders the final watermarked certificate. The
// lock is consumed before rendering on purpose: a failed render must
// not reopen the certificate for a second download.
func (s *Service) Download(ctx context.Context, token, wallet, signature string) (*Artifact, error) {
	payload, owner, err := s.authenticate(ctx, certmsg.ActionDownload, token, wallet, signature)
	if err != nil {
		return nil, err
	}

	key := certlock.Key(payload.ChainID, s.cfg.Contract, payload.TokenID)

	locked, err := s.lock.IsLocked(ctx, key)
	if err != nil {
		return nil, errors.LockError(err)
	}
	if locked {
		return nil, errors.AlreadyConsumed()
	}

	// A pre-existing lock and a lost race are reported identically so
	// callers cannot probe consumption timing.
	consumed, err := s.lock.TryConsume(ctx, key, certlock.Meta{Wallet: strings.ToLower(wallet)})
	if err != nil {
		return nil, errors.LockError(err)
	}
	if !consumed {
		return nil, errors.AlreadyConsumed()
	}

	png, err := s.renderer.Render(ctx, render.Options{
		TokenID:  payload.TokenID,
		Contract: s.cfg.Contract,
		Owner:    owner.Hex(),
		Verified: true,
	})
	if err != nil {
		s.logger.Error("certificate render failed after lock consumption",
			zap.String("lock_key", key),
			zap.Error(err),
		)
		return nil, errors.RenderError(err)
	}

	s.logger.Info("certificate downloaded",
		zap.Int64("token_id", payload.TokenID),
		zap.String("wallet", strings.ToLower(wallet)),
	)

	return &Artifact{
		Filename: fmt.Sprintf("WFACTORY_CERT_%d.png", payload.TokenID),
		PNG:      png,
	}, nil
}

// Preview verifies only token integrity and expiry, then renders the
// unverified artifact. No wallet interaction is required; the output
// carries the UNVERIFIED watermark and no owner.
func (s *Service) Preview(ctx context.Context, token string) ([]byte, error) {
	payload, err := s.verifyToken(token)
	if err != nil {
		return nil, err
	}

	png, err := s.renderer.Render(ctx, render.Options{
		TokenID:  payload.TokenID,
		Contract: strings.ToLower(payload.Contract),
		Verified: false,
	})
	if err != nil {
		return nil, errors.RenderError(err)
	}
	return png, nil
}

// Issue signs a fresh claim token for tokenID. The production mint
// flow calls this right after a successful mint; the HTTP route in
// front of it is dev-pass guarded.
func (s *Service) Issue(tokenID int64, ttl time.Duration) (token, url string, err error) {
	if tokenID < 0 {
		return "", "", errors.InvalidInput("tokenId must be non-negative")
	}
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}
	if ttl < minTokenTTL {
		ttl = minTokenTTL
	}

	nonce, err := certtoken.NewNonce()
	if err != nil {
		return "", "", errors.Internal("Failed to generate nonce").WithError(err)
	}

	now := time.Now().Unix()
	token, err = certtoken.Sign(certtoken.Payload{
		Version:  certtoken.SupportedVersion,
		ChainID:  s.cfg.ChainID,
		Contract: s.cfg.Contract,
		TokenID:  tokenID,
		Nonce:    nonce,
		IssuedAt: now,
		Exp:      now + int64(ttl.Seconds()),
	}, s.cfg.Secret)
	if err != nil {
		return "", "", errors.Internal("Failed to sign certificate token").WithError(err)
	}

	s.logger.Info("certificate token issued",
		zap.Int64("token_id", tokenID),
		zap.Duration("ttl", ttl),
	)

	return token, strings.TrimSuffix(s.cfg.BaseURL, "/") + "/cert/" + token, nil
}

// authenticate runs the admission cascade shared by verify and
// download. The order is fixed: each step is a cheaper local filter
// for failures the later on-chain read would also catch.
func (s *Service) authenticate(ctx context.Context, action certmsg.Action, token, wallet, signature string) (certtoken.Payload, common.Address, error) {
	payload, err := s.verifyToken(token)
	if err != nil {
		return certtoken.Payload{}, common.Address{}, err
	}

	if payload.ChainID != s.cfg.ChainID {
		return certtoken.Payload{}, common.Address{}, errors.ChainMismatch(payload.ChainID, s.cfg.ChainID)
	}
	if !strings.EqualFold(payload.Contract, s.cfg.Contract) {
		return certtoken.Payload{}, common.Address{}, errors.ContractMismatch(
			strings.ToLower(payload.Contract), s.cfg.Contract)
	}

	if !common.IsHexAddress(wallet) {
		return certtoken.Payload{}, common.Address{}, errors.InvalidInput("Invalid wallet address")
	}

	sig, err := ethsig.ParseSignature(signature)
	if err != nil {
		return certtoken.Payload{}, common.Address{}, errors.InvalidInput("Invalid signature format")
	}

	msg := certmsg.Build(certmsg.Params{
		Action:   action,
		ChainID:  payload.ChainID,
		Contract: s.cfg.Contract,
		TokenID:  payload.TokenID,
		Wallet:   wallet,
		Nonce:    payload.Nonce,
		Exp:      payload.Exp,
	})

	recovered, err := s.recoverer.Recover(msg, sig)
	if err != nil {
		s.logger.Warn("signature recovery failed", zap.Error(err))
		return certtoken.Payload{}, common.Address{}, errors.BadWalletSignature()
	}
	if !strings.EqualFold(recovered.Hex(), wallet) {
		return certtoken.Payload{}, common.Address{}, errors.BadWalletSignature()
	}

	owner, err := s.reader.OwnerOf(ctx, common.HexToAddress(s.cfg.Contract), payload.TokenID)
	if err != nil {
		s.logger.Warn("ownerOf lookup failed",
			zap.Int64("token_id", payload.TokenID),
			zap.Error(err),
		)
		return certtoken.Payload{}, common.Address{}, errors.OwnershipCheckFailed(err)
	}
	if !strings.EqualFold(owner.Hex(), wallet) {
		return certtoken.Payload{}, common.Address{}, errors.NotOwner().WithDetails(map[string]any{
			"owner_on_chain": owner.Hex(),
		})
	}

	return payload, owner, nil
}

// verifyToken maps codec failures onto the API error taxonomy.
func (s *Service) verifyToken(token string) (certtoken.Payload, error) {
	payload, err := certtoken.Verify(token, s.cfg.Secret)
	if err == nil {
		return payload, nil
	}

	switch {
	case stderrors.Is(err, certtoken.ErrTokenExpired):
		return certtoken.Payload{}, errors.TokenExpired()
	case stderrors.Is(err, certtoken.ErrUnsupportedVersion):
		return certtoken.Payload{}, errors.UnsupportedVersion()
	case stderrors.Is(err, certtoken.ErrInvalidSignature):
		return certtoken.Payload{}, errors.InvalidTokenSignature()
	default:
		return certtoken.Payload{}, errors.MalformedToken().WithError(err)
	}
}

// chainSlugs maps chain IDs to opensea asset path slugs.
var chainSlugs = map[int64]string{
	1:   "ethereum",
	137: "matic",
}

func openseaURL(chainID int64, contract string, tokenID int64) string {
	slug, ok := chainSlugs[chainID]
	if !ok {
		slug = "matic"
	}
	return fmt.Sprintf("https://opensea.io/assets/%s/%s/%d", slug, contract, tokenID)
}
