package channel

import (
	"context"
	"net/url"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
)

const defaultBankCardCashierURL = "https://cashier.unionpay.example/pay"

// bankCardProvider 银行卡收银台，跳转 https 收银台页面
type bankCardProvider struct {
	cashierURL string
	merchantNo string
}

func newBankCardProvider(cfg config.BankCardPayConfig) *bankCardProvider {
	cashierURL := strings.TrimSpace(cfg.CashierURL)
	if cashierURL == "" {
		cashierURL = defaultBankCardCashierURL
	}
	return &bankCardProvider{cashierURL: cashierURL, merchantNo: strings.TrimSpace(cfg.MerchantNo)}
}

func (p *bankCardProvider) Channel() string { return constants.PaymentChannelBankCard }

func (p *bankCardProvider) InteractionMode() string { return constants.PaymentInteractionRedirect }

func (p *bankCardProvider) BuildRedirect(_ context.Context, req RedirectRequest) (*RedirectResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "CNY"
	}
	params := url.Values{}
	params.Set("merchant_no", p.merchantNo)
	params.Set("order_no", req.PaymentID)
	params.Set("amount", req.Amount.StringFixed(2))
	params.Set("currency", currency)
	if returnURL := strings.TrimSpace(req.ReturnURL); returnURL != "" {
		params.Set("return_url", returnURL)
	}
	if notifyURL := strings.TrimSpace(req.NotifyURL); notifyURL != "" {
		params.Set("notify_url", notifyURL)
	}
	target, err := appendQuery(p.cashierURL, params)
	if err != nil {
		return nil, err
	}
	return &RedirectResult{InteractionMode: p.InteractionMode(), URL: target}, nil
}
