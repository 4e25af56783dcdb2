package channel

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(config.PaymentConfig{
		Wechat:   config.WechatPayConfig{AppID: "wx-app", MerchantID: "1900000001"},
		Alipay:   config.AlipayConfig{AppID: "2021000000000001"},
		BankCard: config.BankCardPayConfig{CashierURL: "https://cashier.bank.test/pay", MerchantNo: "M001"},
	})
}

func newTestRequest() RedirectRequest {
	return RedirectRequest{
		PaymentID: "pay-1",
		OrderID:   "order-1",
		Amount:    decimal.RequireFromString("400.00"),
		Currency:  "CNY",
		NotifyURL: "https://api.railbook.test/api/v1/payments/callback",
		ReturnURL: "https://railbook.test/orders/order-1",
	}
}

func TestRegistryChannels(t *testing.T) {
	registry := newTestRegistry()
	assert.Equal(t, []string{
		constants.PaymentChannelAlipay,
		constants.PaymentChannelAlipayApp,
		constants.PaymentChannelBankCard,
		constants.PaymentChannelWechat,
		constants.PaymentChannelWechatApp,
	}, registry.Channels())

	provider, err := registry.Get(" WeChat ")
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentChannelWechat, provider.Channel())

	_, err = registry.Get("paypal")
	assert.True(t, errors.Is(err, ErrChannelUnsupported))
	assert.False(t, IsSupportedChannel("paypal"))
	assert.True(t, IsSupportedChannel("ALIPAY_APP"))
}

func TestProvidersUseDistinctSchemes(t *testing.T) {
	registry := newTestRegistry()
	cases := []struct {
		channel string
		mode    string
		prefix  string
	}{
		{constants.PaymentChannelWechat, constants.PaymentInteractionQR, "weixin://wxpay/bizpayurl?"},
		{constants.PaymentChannelWechatApp, constants.PaymentInteractionApp, "weixin://app/pay?"},
		{constants.PaymentChannelAlipay, constants.PaymentInteractionRedirect, "https://openapi.alipay.com/gateway.do?"},
		{constants.PaymentChannelAlipayApp, constants.PaymentInteractionApp, "alipays://platformapi/startapp?"},
		{constants.PaymentChannelBankCard, constants.PaymentInteractionRedirect, "https://cashier.bank.test/pay?"},
	}
	seen := map[string]bool{}
	for _, tc := range cases {
		t.Run(tc.channel, func(t *testing.T) {
			provider, err := registry.Get(tc.channel)
			require.NoError(t, err)
			result, err := provider.BuildRedirect(context.Background(), newTestRequest())
			require.NoError(t, err)
			assert.Equal(t, tc.mode, result.InteractionMode)
			assert.True(t, strings.HasPrefix(result.URL, tc.prefix), "unexpected url %s", result.URL)
			assert.False(t, seen[result.URL])
			seen[result.URL] = true
		})
	}
}

func TestWechatAmountInFen(t *testing.T) {
	provider, err := newTestRegistry().Get(constants.PaymentChannelWechat)
	require.NoError(t, err)
	result, err := provider.BuildRedirect(context.Background(), newTestRequest())
	require.NoError(t, err)

	parsed, err := url.Parse(result.URL)
	require.NoError(t, err)
	assert.Equal(t, "40000", parsed.Query().Get("total_fee"))
	assert.Equal(t, "order-1", parsed.Query().Get("out_trade_no"))
}

func TestAlipayAppWrapsCashierURL(t *testing.T) {
	provider, err := newTestRegistry().Get(constants.PaymentChannelAlipayApp)
	require.NoError(t, err)
	result, err := provider.BuildRedirect(context.Background(), newTestRequest())
	require.NoError(t, err)

	parsed, err := url.Parse(result.URL)
	require.NoError(t, err)
	assert.Equal(t, alipayCashierAppID, parsed.Query().Get("appId"))
	inner, err := url.Parse(parsed.Query().Get("url"))
	require.NoError(t, err)
	assert.Equal(t, "alipay.trade.app.pay", inner.Query().Get("method"))
	assert.Equal(t, "400.00", inner.Query().Get("total_amount"))
}

func TestBuildRedirectRejectsInvalidAmount(t *testing.T) {
	registry := newTestRegistry()

	req := newTestRequest()
	req.Amount = decimal.Zero
	provider, err := registry.Get(constants.PaymentChannelBankCard)
	require.NoError(t, err)
	_, err = provider.BuildRedirect(context.Background(), req)
	assert.True(t, errors.Is(err, ErrAmountInvalid))

	req = newTestRequest()
	req.Amount = decimal.RequireFromString("1.005")
	provider, err = registry.Get(constants.PaymentChannelWechat)
	require.NoError(t, err)
	_, err = provider.BuildRedirect(context.Background(), req)
	assert.True(t, errors.Is(err, ErrAmountInvalid))
}

func TestConvertAmountToFen(t *testing.T) {
	fen, err := convertAmountToFen(decimal.RequireFromString("12.34"))
	require.NoError(t, err)
	assert.Equal(t, int64(1234), fen)

	_, err = convertAmountToFen(decimal.NewFromInt(-1))
	assert.Error(t, err)
}
