package public

import (
	"errors"

	handlershared "github.com/railbook-next/internal/http/handlers/shared"
	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

// resolveMappedError 按规则表解析错误；未命中时业务码取自错误分类，文案用兜底 key
func resolveMappedError(err error, rules []mappedHandlerError, fallbackKey string) *response.AppError {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return response.WrapError(rule.code, rule.key, nil)
		}
	}
	return response.WrapError(response.CodeForKind(service.KindOf(err)), fallbackKey, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackKey string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		handlershared.RespondErrorWithData(c, response.CodeBadRequest, "error.validation_failed", gin.H{"fields": verr.Fields})
		return
	}
	appErr := resolveMappedError(err, rules, fallbackKey)
	respondError(c, appErr.Code, appErr.Key, appErr.Err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var validationErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCertificateFormat, code: response.CodeBadRequest, key: "error.certificate_invalid"},
	{target: service.ErrPassengerCountMismatch, code: response.CodeBadRequest, key: "error.passenger_count_mismatch"},
	{target: service.ErrInvalidPricingInput, code: response.CodeBadRequest, key: "error.pricing_invalid"},
	{target: service.ErrUnsupportedChannel, code: response.CodeBadRequest, key: "error.payment_channel_invalid"},
	{target: service.ErrValidation, code: response.CodeBadRequest, key: "error.validation_failed"},
}

var seatLockErrorRules = []mappedHandlerError{
	{target: service.ErrInsufficientInventory, code: response.CodeConflict, key: "error.inventory_insufficient"},
	{target: service.ErrInventoryCheckTimeout, code: response.CodeGatewayTimeout, key: "error.inventory_timeout"},
	{target: service.ErrInventoryUnavailable, code: response.CodeInternal, key: "error.inventory_unavailable"},
	{target: service.ErrLockNotFound, code: response.CodeNotFound, key: "error.seat_lock_not_found"},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrLockNotFound, code: response.CodeNotFound, key: "error.seat_lock_not_found"},
	{target: service.ErrLockExpired, code: response.CodeGone, key: "error.seat_lock_expired"},
	{target: service.ErrLockAlreadyConsumed, code: response.CodeConflict, key: "error.seat_lock_consumed"},
}

var orderQueryErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrInvalidTransition, code: response.CodeConflict, key: "error.order_status_invalid"},
}

var paymentInitiateErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrAmountMismatch, code: response.CodeConflict, key: "error.payment_amount_mismatch"},
	{target: service.ErrOrderNotPayable, code: response.CodeConflict, key: "error.order_not_payable"},
	{target: service.ErrPaymentAlreadySucceeded, code: response.CodeConflict, key: "error.payment_already_succeeded"},
	{target: service.ErrPaymentProviderFailed, code: response.CodeInternal, key: "error.payment_provider_failed"},
}

var paymentCallbackErrorRules = []mappedHandlerError{
	{target: service.ErrSignatureInvalid, code: response.CodeBadRequest, key: "error.payment_signature_invalid"},
	{target: service.ErrCallbackMalformed, code: response.CodeBadRequest, key: "error.payment_callback_malformed"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrAmountMismatch, code: response.CodeConflict, key: "error.payment_amount_mismatch"},
	{target: service.ErrOrderNoLongerPayable, code: response.CodeGone, key: "error.order_no_longer_payable"},
}

var paymentQueryErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
}

func respondSeatLockError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(validationErrorRules, seatLockErrorRules), "error.seat_lock_create_failed")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(validationErrorRules, orderCreateErrorRules), "error.order_create_failed")
}

func respondOrderQueryError(c *gin.Context, err error, fallbackKey string) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(validationErrorRules, orderQueryErrorRules), fallbackKey)
}

func respondPaymentInitiateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(validationErrorRules, paymentInitiateErrorRules), "error.payment_create_failed")
}

func respondPaymentCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCallbackErrorRules, "error.payment_callback_failed")
}

func respondPaymentQueryError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentQueryErrorRules, "error.internal")
}
