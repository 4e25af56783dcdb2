package channel

import (
	"context"
	"net/url"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
)

const (
	defaultAlipayGatewayURL = "https://openapi.alipay.com/gateway.do"
	defaultAlipayAppScheme  = "alipays://platformapi/startapp"
	// 支付宝收银台小程序 ID
	alipayCashierAppID = "20000067"
)

type alipayBase struct {
	appID      string
	gatewayURL string
}

func newAlipayBase(cfg config.AlipayConfig) alipayBase {
	gatewayURL := strings.TrimSpace(cfg.GatewayURL)
	if gatewayURL == "" {
		gatewayURL = defaultAlipayGatewayURL
	}
	return alipayBase{appID: strings.TrimSpace(cfg.AppID), gatewayURL: gatewayURL}
}

func (b alipayBase) gatewayTarget(method string, req RedirectRequest) (string, error) {
	params := url.Values{}
	params.Set("method", method)
	params.Set("app_id", b.appID)
	params.Set("charset", "utf-8")
	params.Set("out_trade_no", req.PaymentID)
	params.Set("total_amount", req.Amount.StringFixed(2))
	params.Set("subject", buildSubject(req.Subject, req.OrderID))
	if notifyURL := strings.TrimSpace(req.NotifyURL); notifyURL != "" {
		params.Set("notify_url", notifyURL)
	}
	if returnURL := strings.TrimSpace(req.ReturnURL); returnURL != "" {
		params.Set("return_url", returnURL)
	}
	return appendQuery(b.gatewayURL, params)
}

// alipayPageProvider 支付宝电脑网站支付，跳转网关页面
type alipayPageProvider struct {
	alipayBase
}

func newAlipayPageProvider(cfg config.AlipayConfig) *alipayPageProvider {
	return &alipayPageProvider{alipayBase: newAlipayBase(cfg)}
}

func (p *alipayPageProvider) Channel() string { return constants.PaymentChannelAlipay }

func (p *alipayPageProvider) InteractionMode() string { return constants.PaymentInteractionRedirect }

func (p *alipayPageProvider) BuildRedirect(_ context.Context, req RedirectRequest) (*RedirectResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	target, err := p.gatewayTarget("alipay.trade.page.pay", req)
	if err != nil {
		return nil, err
	}
	return &RedirectResult{InteractionMode: p.InteractionMode(), URL: target}, nil
}

// alipayAppProvider 支付宝 App 支付，通过 scheme 唤起支付宝并打开收银台
type alipayAppProvider struct {
	alipayBase
	schemeURL string
}

func newAlipayAppProvider(cfg config.AlipayConfig) *alipayAppProvider {
	schemeURL := strings.TrimSpace(cfg.AppSchemeURL)
	if schemeURL == "" {
		schemeURL = defaultAlipayAppScheme
	}
	return &alipayAppProvider{alipayBase: newAlipayBase(cfg), schemeURL: schemeURL}
}

func (p *alipayAppProvider) Channel() string { return constants.PaymentChannelAlipayApp }

func (p *alipayAppProvider) InteractionMode() string { return constants.PaymentInteractionApp }

func (p *alipayAppProvider) BuildRedirect(_ context.Context, req RedirectRequest) (*RedirectResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	cashier, err := p.gatewayTarget("alipay.trade.app.pay", req)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("appId", alipayCashierAppID)
	params.Set("url", cashier)
	target, err := appendQuery(p.schemeURL, params)
	if err != nil {
		return nil, err
	}
	return &RedirectResult{InteractionMode: p.InteractionMode(), URL: target}, nil
}
