package auth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/landsale/backend/internal/voucher"
)

// LoginMessage is the text a wallet signs with personal_sign to log in.
func LoginMessage(domain, nonce string) string {
	return fmt.Sprintf("%s wants you to sign in with your wallet.\n\nNonce: %s", domain, nonce)
}

// VerifyLogin проверяет personal_sign подпись над LoginMessage.
//
// 1. hash = keccak256("\x19Ethereum Signed Message:\n" ++ len(msg) ++ msg)
// 2. recover signer (v 0/1 или 27/28, low-s)
// 3. signer должен совпасть с заявленным адресом
func VerifyLogin(wallet common.Address, message string, signatureHex string) error {
	sig, err := decodeHex(signatureHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}

	signer, err := voucher.RecoverSigner(common.BytesToHash(accounts.TextHash([]byte(message))), sig)
	if err != nil {
		return err
	}
	if signer != wallet {
		return fmt.Errorf("signature from %s, expected %s", signer.Hex(), wallet.Hex())
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
