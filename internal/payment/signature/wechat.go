package signature

import (
	"context"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

// WechatVerifier 微信支付平台证书 SHA256-RSA 验签
type WechatVerifier struct {
	certs    *core.CertificateMap
	verifier *verifiers.SHA256WithRSAVerifier
}

// NewWechatVerifierFromPEM 从平台证书 PEM 创建校验器
func NewWechatVerifierFromPEM(certPEM string) (*WechatVerifier, error) {
	cert, err := utils.LoadCertificate(strings.TrimSpace(certPEM))
	if err != nil {
		return nil, fmt.Errorf("%w: load wechat platform cert: %v", ErrVerifierConfig, err)
	}
	return NewWechatVerifier(cert)
}

// NewWechatVerifier 使用平台证书列表创建校验器
func NewWechatVerifier(certs ...*x509.Certificate) (*WechatVerifier, error) {
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: wechat platform cert is empty", ErrVerifierConfig)
	}
	certMap := core.NewCertificateMapWithList(certs)
	return &WechatVerifier{
		certs:    certMap,
		verifier: verifiers.NewSHA256WithRSAVerifier(certMap),
	}, nil
}

// Verify 回调未携带证书序列号时使用最新的平台证书
func (v *WechatVerifier) Verify(ctx context.Context, sig CallbackSignature) error {
	serial := strings.TrimSpace(sig.SerialNo)
	if serial == "" {
		serial = v.certs.GetNewestSerial(ctx)
	}
	if strings.TrimSpace(sig.Signature) == "" || serial == "" {
		return ErrSignatureInvalid
	}
	if err := v.verifier.Verify(ctx, serial, sig.Message(), strings.TrimSpace(sig.Signature)); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}
