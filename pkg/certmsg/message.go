// Package certmsg builds the canonical message a wallet signs to prove
// ownership during certificate claim. Signer and verifier must produce
// byte-identical strings, so the header line, the field order, and the
// formatting below are a compatibility contract: changing any of them
// invalidates every signature request issued before the change.
package certmsg

import (
	"fmt"
	"strings"
)

// Action is the operation the signature authorizes.
type Action string

const (
	ActionVerify   Action = "verify"
	ActionDownload Action = "download"
)

// Header is the constant first line of every canonical message.
const Header = "W FACTORY CERTIFICATE"

// Params are the claim fields embedded in the message.
type Params struct {
	Action   Action
	ChainID  int64
	Contract string
	TokenID  int64
	Wallet   string
	Nonce    string
	Exp      int64
}

// Build joins the claim fields into the canonical newline-separated
// challenge. Contract and wallet are lowercased; no other normalization
// or escaping is applied.
func Build(p Params) string {
	return strings.Join([]string{
		Header,
		fmt.Sprintf("action:%s", p.Action),
		fmt.Sprintf("chainId:%d", p.ChainID),
		fmt.Sprintf("contract:%s", strings.ToLower(p.Contract)),
		fmt.Sprintf("tokenId:%d", p.TokenID),
		fmt.Sprintf("wallet:%s", strings.ToLower(p.Wallet)),
		fmt.Sprintf("nonce:%s", p.Nonce),
		fmt.Sprintf("exp:%d", p.Exp),
	}, "\n")
}
