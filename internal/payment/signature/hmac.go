package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HMACVerifier HMAC-SHA256 回调签名，签名为十六进制小写
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier 创建 HMAC 校验器
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: callback secret is empty", ErrVerifierConfig)
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

// Sign 计算待签名串的签名
func (v *HMACVerifier) Sign(message string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 常量时间比较签名
func (v *HMACVerifier) Verify(_ context.Context, sig CallbackSignature) error {
	provided, err := hex.DecodeString(strings.TrimSpace(sig.Signature))
	if err != nil || len(provided) == 0 {
		return ErrSignatureInvalid
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(sig.Message()))
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrSignatureInvalid
	}
	return nil
}
