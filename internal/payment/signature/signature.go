package signature

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
)

var (
	ErrSignatureInvalid = errors.New("callback signature invalid")
	ErrVerifierConfig   = errors.New("signature verifier config invalid")
)

// CallbackSignature 回调验签输入
type CallbackSignature struct {
	Body      string
	Signature string
	Timestamp string
	Nonce     string
	SerialNo  string
}

// Message 待签名串：时间戳\n随机串\n报文\n
func (s CallbackSignature) Message() string {
	return BuildMessage(s.Timestamp, s.Nonce, s.Body)
}

// BuildMessage 构造待签名串，与微信支付 APIv3 回调签名串格式一致
func BuildMessage(timestamp, nonce, body string) string {
	return timestamp + "\n" + nonce + "\n" + body + "\n"
}

// CanonicalBody 将回调字段按键名排序拼接为 k=v&k=v，空值字段跳过
func CanonicalBody(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if strings.TrimSpace(value) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+fields[key])
	}
	return strings.Join(parts, "&")
}

// Verifier 回调签名校验器
type Verifier interface {
	Verify(ctx context.Context, sig CallbackSignature) error
}

// Router 按渠道选择验签方式，未单独配置的渠道使用默认校验器
type Router struct {
	fallback  Verifier
	verifiers map[string]Verifier
}

// NewRouter 根据支付配置构建验签路由
func NewRouter(cfg config.PaymentConfig) (*Router, error) {
	fallback, err := NewHMACVerifier(cfg.CallbackSecret)
	if err != nil {
		return nil, err
	}
	router := &Router{fallback: fallback, verifiers: map[string]Verifier{}}
	if strings.TrimSpace(cfg.Wechat.PlatformCert) != "" {
		wechat, err := NewWechatVerifierFromPEM(cfg.Wechat.PlatformCert)
		if err != nil {
			return nil, err
		}
		router.Register(constants.PaymentChannelWechat, wechat)
		router.Register(constants.PaymentChannelWechatApp, wechat)
	}
	return router, nil
}

// Register 为渠道注册校验器
func (r *Router) Register(channel string, verifier Verifier) {
	if verifier == nil {
		return
	}
	r.verifiers[strings.ToLower(strings.TrimSpace(channel))] = verifier
}

// Verify 校验指定渠道的回调签名
func (r *Router) Verify(ctx context.Context, channel string, sig CallbackSignature) error {
	if r == nil {
		return fmt.Errorf("%w: router not configured", ErrVerifierConfig)
	}
	if verifier, ok := r.verifiers[strings.ToLower(strings.TrimSpace(channel))]; ok {
		return verifier.Verify(ctx, sig)
	}
	if r.fallback == nil {
		return fmt.Errorf("%w: no verifier for channel %s", ErrVerifierConfig, channel)
	}
	return r.fallback.Verify(ctx, sig)
}
