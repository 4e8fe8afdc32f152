package certmsg

import "testing"

func baseParams() Params {
	return Params{
		Action:   ActionVerify,
		ChainID:  137,
		Contract: "0x6E7B6C3Db7b6a6F2a0bD6a2Ff77BcAe0CccF4AdE",
		TokenID:  5,
		Wallet:   "0xAbCd35Cc6634C0532925a3b844Bc454e4438f44e",
		Nonce:    "deadbeefdeadbeefdeadbeefdeadbeef",
		Exp:      1706001800,
	}
}

func TestBuildExactFormat(t *testing.T) {
	want := "W FACTORY CERTIFICATE\n" +
		"action:verify\n" +
		"chainId:137\n" +
		"contract:0x6e7b6c3db7b6a6f2a0bd6a2ff77bcae0cccf4ade\n" +
		"tokenId:5\n" +
		"wallet:0xabcd35cc6634c0532925a3b844bc454e4438f44e\n" +
		"nonce:deadbeefdeadbeefdeadbeefdeadbeef\n" +
		"exp:1706001800"

	if got := Build(baseParams()); got != want {
		t.Fatalf("Build() =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildDeterministic(t *testing.T) {
	if Build(baseParams()) != Build(baseParams()) {
		t.Fatal("two Build calls with identical params differ")
	}
}

func TestBuildSensitiveToEveryField(t *testing.T) {
	base := Build(baseParams())

	mutations := map[string]func(*Params){
		"action":   func(p *Params) { p.Action = ActionDownload },
		"chainId":  func(p *Params) { p.ChainID = 1 },
		"contract": func(p *Params) { p.Contract = "0x0000000000000000000000000000000000000001" },
		"tokenId":  func(p *Params) { p.TokenID = 6 },
		"wallet":   func(p *Params) { p.Wallet = "0x0000000000000000000000000000000000000002" },
		"nonce":    func(p *Params) { p.Nonce = "other" },
		"exp":      func(p *Params) { p.Exp = 1 },
	}

	for field, mutate := range mutations {
		p := baseParams()
		mutate(&p)
		if Build(p) == base {
			t.Errorf("changing %s did not change the message", field)
		}
	}
}

func TestBuildCaseInsensitiveAddresses(t *testing.T) {
	upper := baseParams()
	lower := baseParams()
	lower.Contract = "0x6e7b6c3db7b6a6f2a0bd6a2ff77bcae0cccf4ade"
	lower.Wallet = "0xabcd35cc6634c0532925a3b844bc454e4438f44e"

	if Build(upper) != Build(lower) {
		t.Fatal("address casing leaked into the canonical message")
	}
}
