package execclient

import (
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// signedOrder is the wire shape the venue expects (EIP-712 struct
// fields in the order the teacher's CTF Exchange contract defines them).
type signedOrder struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderPayload struct {
	Order     signedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType orderType   `json:"orderType"`
	PostOnly  bool        `json:"postOnly,omitempty"`
}

var usdcDecimals = decimal.NewFromInt(1000000) // USDC has 6 decimals on Polygon

// buildSignedOrder constructs and EIP-712-signs one order, via
// go-ethereum's crypto/common/hexutil.
func (c *Client) buildSignedOrder(tokenID string, price, size decimal.Decimal, side string, wt orderType, expireTimeNs *int64) (*signedOrder, error) {
	maker := c.cfg.FunderAddress
	if maker == "" {
		maker = c.address
	}

	var makerAmount, takerAmount decimal.Decimal
	if side == "BUY" {
		makerAmount = size.Mul(price).Mul(usdcDecimals).Floor()
		takerAmount = size.Mul(usdcDecimals).Floor()
	} else {
		makerAmount = size.Mul(usdcDecimals).Floor()
		takerAmount = size.Mul(price).Mul(usdcDecimals).Floor()
	}

	expiration := "0"
	if wt == orderTypeGTD && expireTimeNs != nil {
		expiration = big.NewInt(0).SetInt64(*expireTimeNs / 1_000_000_000).String()
	}

	o := &signedOrder{
		Salt:          generateSalt(),
		Maker:         maker,
		Signer:        c.address,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       tokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    expiration,
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: c.cfg.SigType,
	}

	sig, err := c.signOrderEIP712(o)
	if err != nil {
		return nil, err
	}
	o.Signature = sig
	return o, nil
}

func (c *Client) signOrderEIP712(o *signedOrder) (string, error) {
	if c.privateKey == nil {
		return "", kernerr.New(kernerr.InvalidInput, "execclient: no private key configured for signing")
	}

	domainSeparator := buildDomainSeparator(ctfExchange, chainID)
	orderHash := buildOrderStructHash(o)

	data := append([]byte("\x19\x01"), domainSeparator[:]...)
	data = append(data, orderHash[:]...)
	finalHash := crypto.Keccak256(data)

	sig, err := crypto.Sign(finalHash, c.privateKey)
	if err != nil {
		return "", err
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return hexutil.Encode(sig), nil
}

func buildDomainSeparator(contractAddr string, chain int) [32]byte {
	domainTypeHash := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	nameHash := crypto.Keccak256([]byte("Polymarket CTF Exchange"))
	versionHash := crypto.Keccak256([]byte("1"))

	chainBytes := common.LeftPadBytes(big.NewInt(int64(chain)).Bytes(), 32)
	contractPadded := common.LeftPadBytes(common.HexToAddress(contractAddr).Bytes(), 32)

	data := append(append([]byte{}, domainTypeHash...), nameHash...)
	data = append(data, versionHash...)
	data = append(data, chainBytes...)
	data = append(data, contractPadded...)

	var result [32]byte
	copy(result[:], crypto.Keccak256(data))
	return result
}

func buildOrderStructHash(o *signedOrder) [32]byte {
	orderTypeHash := crypto.Keccak256([]byte(
		"Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"))

	sideVal := byte(0)
	if o.Side == "SELL" {
		sideVal = 1
	}

	var data []byte
	data = append(data, orderTypeHash...)
	data = append(data, padUint256(o.Salt)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32)...)
	data = append(data, padUint256(o.TokenID)...)
	data = append(data, padUint256(o.MakerAmount)...)
	data = append(data, padUint256(o.TakerAmount)...)
	data = append(data, padUint256(o.Expiration)...)
	data = append(data, padUint256(o.Nonce)...)
	data = append(data, padUint256(o.FeeRateBps)...)
	data = append(data, common.LeftPadBytes([]byte{sideVal}, 32)...)
	data = append(data, common.LeftPadBytes([]byte{byte(o.SignatureType)}, 32)...)

	var result [32]byte
	copy(result[:], crypto.Keccak256(data))
	return result
}

func padUint256(s string) []byte {
	n := new(big.Int)
	n.SetString(s, 10)
	return common.LeftPadBytes(n.Bytes(), 32)
}

func generateSalt() string {
	b := make([]byte, 32)
	rand.Read(b)
	return new(big.Int).SetBytes(b).String()
}
