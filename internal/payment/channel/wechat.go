package channel

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
)

const (
	defaultWechatQRBaseURL  = "weixin://wxpay/bizpayurl"
	defaultWechatAppBaseURL = "weixin://app/pay"
)

// wechatNativeProvider 微信扫码支付（Native），返回二维码内容
type wechatNativeProvider struct {
	appID      string
	merchantID string
	baseURL    string
}

func newWechatNativeProvider(cfg config.WechatPayConfig) *wechatNativeProvider {
	baseURL := strings.TrimSpace(cfg.QRBaseURL)
	if baseURL == "" {
		baseURL = defaultWechatQRBaseURL
	}
	return &wechatNativeProvider{
		appID:      strings.TrimSpace(cfg.AppID),
		merchantID: strings.TrimSpace(cfg.MerchantID),
		baseURL:    baseURL,
	}
}

func (p *wechatNativeProvider) Channel() string { return constants.PaymentChannelWechat }

func (p *wechatNativeProvider) InteractionMode() string { return constants.PaymentInteractionQR }

func (p *wechatNativeProvider) BuildRedirect(_ context.Context, req RedirectRequest) (*RedirectResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	fen, err := convertAmountToFen(req.Amount)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("appid", p.appID)
	params.Set("mch_id", p.merchantID)
	params.Set("pr", req.PaymentID)
	params.Set("out_trade_no", req.OrderID)
	params.Set("total_fee", strconv.FormatInt(fen, 10))
	params.Set("body", buildSubject(req.Subject, req.OrderID))
	if notifyURL := strings.TrimSpace(req.NotifyURL); notifyURL != "" {
		params.Set("notify_url", notifyURL)
	}
	target, err := appendQuery(p.baseURL, params)
	if err != nil {
		return nil, err
	}
	return &RedirectResult{InteractionMode: p.InteractionMode(), URL: target}, nil
}

// wechatAppProvider 微信 App 支付，返回唤起 App 的 scheme
type wechatAppProvider struct {
	appID      string
	merchantID string
	baseURL    string
	now        func() time.Time
}

func newWechatAppProvider(cfg config.WechatPayConfig) *wechatAppProvider {
	baseURL := strings.TrimSpace(cfg.AppSchemeBaseURL)
	if baseURL == "" {
		baseURL = defaultWechatAppBaseURL
	}
	return &wechatAppProvider{
		appID:      strings.TrimSpace(cfg.AppID),
		merchantID: strings.TrimSpace(cfg.MerchantID),
		baseURL:    baseURL,
		now:        time.Now,
	}
}

func (p *wechatAppProvider) Channel() string { return constants.PaymentChannelWechatApp }

func (p *wechatAppProvider) InteractionMode() string { return constants.PaymentInteractionApp }

func (p *wechatAppProvider) BuildRedirect(_ context.Context, req RedirectRequest) (*RedirectResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	fen, err := convertAmountToFen(req.Amount)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("appid", p.appID)
	params.Set("partnerid", p.merchantID)
	params.Set("prepayid", req.PaymentID)
	params.Set("package", "Sign=WXPay")
	params.Set("noncestr", req.OrderID)
	params.Set("timestamp", strconv.FormatInt(p.now().Unix(), 10))
	params.Set("total_fee", strconv.FormatInt(fen, 10))
	target, err := appendQuery(p.baseURL, params)
	if err != nil {
		return nil, err
	}
	return &RedirectResult{InteractionMode: p.InteractionMode(), URL: target}, nil
}
