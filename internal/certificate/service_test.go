package certificate

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	stderrors "errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/wfactory/certclaim/internal/common/errors"
	"github.com/wfactory/certclaim/internal/render"
	"github.com/wfactory/certclaim/pkg/certlock"
	"github.com/wfactory/certclaim/pkg/certmsg"
	"github.com/wfactory/certclaim/pkg/certtoken"
	"github.com/wfactory/certclaim/pkg/chain"
	"github.com/wfactory/certclaim/pkg/ethsig"
)

const (
	testContract = "0x6e7b6c3db7b6a6f2a0bd6a2ff77bcae0cccf4ade"
	testChainID  = int64(137)
)

var testSecret = []byte("service-test-secret")

// stubReader returns a fixed owner or a fixed error.
type stubReader struct {
	owner common.Address
	err   error
}

func (r *stubReader) OwnerOf(context.Context, common.Address, int64) (common.Address, error) {
	if r.err != nil {
		return common.Address{}, r.err
	}
	return r.owner, nil
}

// stubRenderer records what it was asked to draw.
type stubRenderer struct {
	lastOpts render.Options
	err      error
}

func (r *stubRenderer) Render(_ context.Context, opts render.Options) ([]byte, error) {
	r.lastOpts = opts
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png-bytes"), nil
}

type fixture struct {
	service  *Service
	reader   *stubReader
	renderer *stubRenderer
	lock     certlock.Store
	key      *ecdsa.PrivateKey
	wallet   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	wallet := crypto.PubkeyToAddress(key.PublicKey)

	reader := &stubReader{owner: wallet}
	renderer := &stubRenderer{}
	lock := certlock.NewMemoryStore()

	svc := NewService(Config{
		Secret:   testSecret,
		ChainID:  testChainID,
		Contract: testContract,
		TokenTTL: 30 * time.Minute,
		BaseURL:  "http://localhost:8080",
	}, lock, ethsig.NewEthRecoverer(), reader, renderer, zap.NewNop())

	return &fixture{
		service:  svc,
		reader:   reader,
		renderer: renderer,
		lock:     lock,
		key:      key,
		wallet:   wallet.Hex(),
	}
}

func (f *fixture) issueToken(t *testing.T, tokenID int64, exp int64) (string, certtoken.Payload) {
	t.Helper()
	payload := certtoken.Payload{
		Version:  1,
		ChainID:  testChainID,
		Contract: testContract,
		TokenID:  tokenID,
		Nonce:    "aabbccddeeff00112233445566778899",
		IssuedAt: time.Now().Unix(),
		Exp:      exp,
	}
	token, err := certtoken.Sign(payload, testSecret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return token, payload
}

func (f *fixture) sign(t *testing.T, action certmsg.Action, p certtoken.Payload) string {
	t.Helper()
	return f.signWith(t, f.key, action, p, f.wallet)
}

func (f *fixture) signWith(t *testing.T, key *ecdsa.PrivateKey, action certmsg.Action, p certtoken.Payload, wallet string) string {
	t.Helper()
	msg := certmsg.Build(certmsg.Params{
		Action:   action,
		ChainID:  p.ChainID,
		Contract: testContract,
		TokenID:  p.TokenID,
		Wallet:   wallet,
		Nonce:    p.Nonce,
		Exp:      p.Exp,
	})
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		t.Fatalf("crypto.Sign: %v", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig)
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	return appErr.Code
}

func futureExp() int64 {
	return time.Now().Add(30 * time.Minute).Unix()
}

func TestVerifySuccess(t *testing.T) {
	f := newFixture(t)
	token, payload := f.issueToken(t, 5, futureExp())
	sig := f.sign(t, certmsg.ActionVerify, payload)

	result, err := f.service.Verify(context.Background(), token, f.wallet, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.ChainID != testChainID || result.TokenID != 5 {
		t.Errorf("result = %+v", result)
	}
	if result.Owner != f.wallet {
		t.Errorf("owner = %s, want %s", result.Owner, f.wallet)
	}
	if want := "https://opensea.io/assets/matic/" + testContract + "/5"; result.OpenseaURL != want {
		t.Errorf("opensea url = %s, want %s", result.OpenseaURL, want)
	}

	// Verify is idempotent: a second call with identical inputs works.
	if _, err := f.service.Verify(context.Background(), token, f.wallet, sig); err != nil {
		t.Errorf("second Verify: %v", err)
	}
}

func TestVerifyNotOwner(t *testing.T) {
	f := newFixture(t)
	f.reader.owner = common.HexToAddress("0x0000000000000000000000000000000000000bad")

	token, payload := f.issueToken(t, 5, futureExp())
	sig := f.sign(t, certmsg.ActionVerify, payload)

	_, err := f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeNotOwner {
		t.Errorf("code = %s, want %s", got, errors.CodeNotOwner)
	}
}

func TestVerifyOwnershipCheckFailed(t *testing.T) {
	f := newFixture(t)
	f.reader.err = chain.ErrNotMinted

	token, payload := f.issueToken(t, 5, futureExp())
	sig := f.sign(t, certmsg.ActionVerify, payload)

	_, err := f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeOwnershipCheckFailed {
		t.Errorf("code = %s, want %s", got, errors.CodeOwnershipCheckFailed)
	}
}

func TestVerifyBadWalletSignature(t *testing.T) {
	f := newFixture(t)
	token, payload := f.issueToken(t, 5, futureExp())

	otherKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sig := f.signWith(t, otherKey, certmsg.ActionVerify, payload, f.wallet)

	_, err = f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeBadWalletSignature {
		t.Errorf("code = %s, want %s", got, errors.CodeBadWalletSignature)
	}
}

func TestVerifySignatureActionIsBound(t *testing.T) {
	f := newFixture(t)
	token, payload := f.issueToken(t, 5, futureExp())

	// A signature over the download message must not pass verify.
	sig := f.sign(t, certmsg.ActionDownload, payload)

	_, err := f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeBadWalletSignature {
		t.Errorf("code = %s, want %s", got, errors.CodeBadWalletSignature)
	}
}

func TestVerifyContractMismatch(t *testing.T) {
	f := newFixture(t)
	payload := certtoken.Payload{
		Version:  1,
		ChainID:  testChainID,
		Contract: "0x00000000000000000000000000000000000aaaaa",
		TokenID:  5,
		Nonce:    "aabbccddeeff00112233445566778899",
		Exp:      futureExp(),
	}
	token, err := certtoken.Sign(payload, testSecret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig := f.sign(t, certmsg.ActionVerify, payload)

	_, err = f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeContractMismatch {
		t.Errorf("code = %s, want %s", got, errors.CodeContractMismatch)
	}
}

func TestVerifyChainMismatch(t *testing.T) {
	f := newFixture(t)
	payload := certtoken.Payload{
		Version:  1,
		ChainID:  1,
		Contract: testContract,
		TokenID:  5,
		Nonce:    "aabbccddeeff00112233445566778899",
		Exp:      futureExp(),
	}
	token, err := certtoken.Sign(payload, testSecret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig := f.sign(t, certmsg.ActionVerify, payload)

	_, err = f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeChainMismatch {
		t.Errorf("code = %s, want %s", got, errors.CodeChainMismatch)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	f := newFixture(t)
	token, payload := f.issueToken(t, 5, time.Now().Add(-time.Minute).Unix())
	sig := f.sign(t, certmsg.ActionVerify, payload)

	_, err := f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeTokenExpired {
		t.Errorf("code = %s, want %s", got, errors.CodeTokenExpired)
	}
}

func TestVerifyForgedToken(t *testing.T) {
	f := newFixture(t)
	payload := certtoken.Payload{
		Version:  1,
		ChainID:  testChainID,
		Contract: testContract,
		TokenID:  5,
		Nonce:    "aabbccddeeff00112233445566778899",
		Exp:      futureExp(),
	}
	token, err := certtoken.Sign(payload, []byte("attacker-secret"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig := f.sign(t, certmsg.ActionVerify, payload)

	_, err = f.service.Verify(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeInvalidTokenSignature {
		t.Errorf("code = %s, want %s", got, errors.CodeInvalidTokenSignature)
	}
}

func TestDownloadConsumesLockExactlyOnce(t *testing.T) {
	f := newFixture(t)
	token, payload := f.issueToken(t, 5, futureExp())
	sig := f.sign(t, certmsg.ActionDownload, payload)

	artifact, err := f.service.Download(context.Background(), token, f.wallet, sig)
	if err != nil {
		t.Fatalf("first Download: %v", err)
	}
	if !bytes.Equal(artifact.PNG, []byte("png-bytes")) {
		t.Error("unexpected artifact bytes")
	}
	if artifact.Filename != "WFACTORY_CERT_5.png" {
		t.Errorf("filename = %s", artifact.Filename)
	}
	if !f.renderer.lastOpts.Verified {
		t.Error("download must render with Verified=true")
	}

	_, err = f.service.Download(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeAlreadyConsumed {
		t.Errorf("second download code = %s, want %s", got, errors.CodeAlreadyConsumed)
	}
}

func TestDownloadRenderFailureKeepsLockConsumed(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = stderrors.New("template missing")

	token, payload := f.issueToken(t, 6, futureExp())
	sig := f.sign(t, certmsg.ActionDownload, payload)

	_, err := f.service.Download(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeRenderError {
		t.Fatalf("code = %s, want %s", got, errors.CodeRenderError)
	}

	// The lock stays consumed: a retry cannot double-spend via a
	// render failure.
	f.renderer.err = nil
	_, err = f.service.Download(context.Background(), token, f.wallet, sig)
	if got := appCode(t, err); got != errors.CodeAlreadyConsumed {
		t.Errorf("retry code = %s, want %s", got, errors.CodeAlreadyConsumed)
	}
}

func TestDownloadDisabledSingleUse(t *testing.T) {
	f := newFixture(t)
	f.service.lock = certlock.NewDisabledStore()

	token, payload := f.issueToken(t, 7, futureExp())
	sig := f.sign(t, certmsg.ActionDownload, payload)

	for i := 0; i < 2; i++ {
		if _, err := f.service.Download(context.Background(), token, f.wallet, sig); err != nil {
			t.Fatalf("Download #%d with single-use disabled: %v", i, err)
		}
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	token, _ := f.issueToken(t, 5, futureExp())

	png, err := f.service.Preview(context.Background(), token)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !bytes.Equal(png, []byte("png-bytes")) {
		t.Error("unexpected preview bytes")
	}
	if f.renderer.lastOpts.Verified {
		t.Error("preview must render with Verified=false")
	}
	if f.renderer.lastOpts.Owner != "" {
		t.Errorf("preview leaked owner %q", f.renderer.lastOpts.Owner)
	}
}

func TestPreviewHonorsExpiry(t *testing.T) {
	f := newFixture(t)
	token, _ := f.issueToken(t, 5, time.Now().Add(-time.Minute).Unix())

	_, err := f.service.Preview(context.Background(), token)
	if got := appCode(t, err); got != errors.CodeTokenExpired {
		t.Errorf("code = %s, want %s", got, errors.CodeTokenExpired)
	}
}

func TestPreviewMalformedToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Preview(context.Background(), "not-a-token")
	if got := appCode(t, err); got != errors.CodeMalformedToken {
		t.Errorf("code = %s, want %s", got, errors.CodeMalformedToken)
	}
}

func TestIssueRoundTripsThroughVerify(t *testing.T) {
	f := newFixture(t)

	token, url, err := f.service.Issue(18, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := "http://localhost:8080/cert/" + token; url != want {
		t.Errorf("url = %s, want %s", url, want)
	}

	payload, err := certtoken.Verify(token, testSecret)
	if err != nil {
		t.Fatalf("issued token fails verification: %v", err)
	}
	if payload.TokenID != 18 || payload.ChainID != testChainID || payload.Contract != testContract {
		t.Errorf("payload = %+v", payload)
	}
	if len(payload.Nonce) != 32 {
		t.Errorf("nonce %q is not 128 bits of hex", payload.Nonce)
	}

	// The full claim flow accepts the issued token.
	sig := f.sign(t, certmsg.ActionVerify, payload)
	if _, err := f.service.Verify(context.Background(), token, f.wallet, sig); err != nil {
		t.Errorf("Verify of issued token: %v", err)
	}
}

func TestIssueClampsTTL(t *testing.T) {
	f := newFixture(t)

	token, _, err := f.service.Issue(1, time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	payload, err := certtoken.Verify(token, testSecret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ttl := payload.Exp - payload.IssuedAt; ttl < 60 {
		t.Errorf("ttl = %ds, want at least 60", ttl)
	}

	if _, _, err := f.service.Issue(-1, 0); err == nil {
		t.Error("Issue with negative tokenId succeeded")
	}
}
