// Package eth validates wallet addresses and verifies EIP-191 personal-sign
// signatures against them.
package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected length of a decoded secp256k1 signature
// in the [R || S || V] format wallets produce.
const SignatureLength = 65

// IsValidAddress reports whether address is a structurally valid hex
// address. Mixed-case addresses must additionally carry a correct EIP-55
// checksum; all-lowercase and all-uppercase forms are accepted as-is.
func IsValidAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	hexPart := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return common.HexToAddress(address).Hex() == address
}

// Normalize returns the canonical EIP-55 checksummed form of an address.
// The canonical form is the natural key for user records, so case variants
// of the same wallet resolve to one identity.
func Normalize(address string) string {
	return common.HexToAddress(address).Hex()
}

// VerifyPersonalSign reports whether signature is a valid EIP-191
// personal-sign signature by address over the exact bytes of message.
// It never panics: malformed, wrong-length and mismatched signatures all
// return false.
func VerifyPersonalSign(address, message, signature string) bool {
	if !common.IsHexAddress(address) {
		return false
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != SignatureLength {
		return false
	}

	// Wallets encode the recovery id as 27/28; crypto.SigToPub expects 0/1.
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}

	// The prefix hash must match what the wallet signed: the EIP-191
	// personal-message framing over the verbatim message bytes.
	hash := accounts.TextHash([]byte(message))

	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*pubKey) == common.HexToAddress(address)
}
