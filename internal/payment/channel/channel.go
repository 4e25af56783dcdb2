package channel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"

	"github.com/shopspring/decimal"
)

var (
	ErrChannelUnsupported = errors.New("payment channel unsupported")
	ErrConfigInvalid      = errors.New("payment channel config invalid")
	ErrAmountInvalid      = errors.New("payment amount invalid")
)

// RedirectRequest 生成支付跳转所需的参数
type RedirectRequest struct {
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Subject   string
	NotifyURL string
	ReturnURL string
}

// RedirectResult 支付跳转目标
type RedirectResult struct {
	InteractionMode string
	URL             string
}

// Provider 支付渠道
type Provider interface {
	Channel() string
	InteractionMode() string
	BuildRedirect(ctx context.Context, req RedirectRequest) (*RedirectResult, error)
}

// Registry 渠道注册表
type Registry struct {
	providers map[string]Provider
}

// NewRegistry 按支付配置注册全部渠道
func NewRegistry(cfg config.PaymentConfig) *Registry {
	registry := &Registry{providers: map[string]Provider{}}
	registry.Register(newWechatNativeProvider(cfg.Wechat))
	registry.Register(newWechatAppProvider(cfg.Wechat))
	registry.Register(newAlipayPageProvider(cfg.Alipay))
	registry.Register(newAlipayAppProvider(cfg.Alipay))
	registry.Register(newBankCardProvider(cfg.BankCard))
	return registry
}

// Register 注册渠道，同名覆盖
func (r *Registry) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.providers[provider.Channel()] = provider
}

// Get 获取渠道
func (r *Registry) Get(channel string) (Provider, error) {
	if r == nil {
		return nil, ErrChannelUnsupported
	}
	provider, ok := r.providers[NormalizeChannel(channel)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelUnsupported, channel)
	}
	return provider, nil
}

// Channels 已注册渠道（字典序）
func (r *Registry) Channels() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeChannel 归一化渠道编码
func NormalizeChannel(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsSupportedChannel 是否为受支持的渠道
func IsSupportedChannel(raw string) bool {
	switch NormalizeChannel(raw) {
	case constants.PaymentChannelWechat,
		constants.PaymentChannelWechatApp,
		constants.PaymentChannelAlipay,
		constants.PaymentChannelAlipayApp,
		constants.PaymentChannelBankCard:
		return true
	default:
		return false
	}
}

func validateRequest(req RedirectRequest) error {
	if strings.TrimSpace(req.PaymentID) == "" || strings.TrimSpace(req.OrderID) == "" {
		return fmt.Errorf("%w: payment id and order id are required", ErrConfigInvalid)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrAmountInvalid)
	}
	return nil
}

// convertAmountToFen 元转分，精度超过分时报错
func convertAmountToFen(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrAmountInvalid)
	}
	fen := amount.Mul(decimal.NewFromInt(100))
	if !fen.Equal(fen.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision exceeds fen", ErrAmountInvalid)
	}
	return fen.IntPart(), nil
}

func buildSubject(subject, orderID string) string {
	subject = strings.TrimSpace(subject)
	if subject != "" {
		return subject
	}
	return "火车票订单 " + strings.TrimSpace(orderID)
}

// appendQuery 在基础地址上追加查询参数
func appendQuery(base string, params url.Values) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("%w: base url is empty", ErrConfigInvalid)
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	query := parsed.Query()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
