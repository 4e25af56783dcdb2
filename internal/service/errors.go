package service

import (
	"errors"
	"sort"
	"strings"
)

// 错误分类
const (
	KindValidation      = "validation"
	KindStateConflict   = "state_conflict"
	KindNotFound        = "not_found"
	KindExternalFailure = "external_failure"
	KindInternal        = "internal"
)

var (
	ErrValidation               = errors.New("invalid request")
	ErrInvalidPricingInput      = errors.New("invalid pricing input")
	ErrInvalidCertificateFormat = errors.New("invalid certificate format")
	ErrPassengerCountMismatch   = errors.New("passenger count does not match locked seats")
	ErrUnsupportedChannel       = errors.New("unsupported payment channel")

	ErrInsufficientInventory   = errors.New("insufficient inventory")
	ErrLockAlreadyConsumed     = errors.New("seat lock already consumed")
	ErrLockExpired             = errors.New("seat lock expired")
	ErrInvalidTransition       = errors.New("invalid order status transition")
	ErrOrderNotPayable         = errors.New("order is not payable")
	ErrOrderNoLongerPayable    = errors.New("order is no longer payable")
	ErrAmountMismatch          = errors.New("payment amount mismatch")
	ErrPaymentAlreadySucceeded = errors.New("payment already succeeded")

	ErrLockNotFound    = errors.New("seat lock not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrInventoryCheckTimeout = errors.New("inventory check timeout")
	ErrInventoryUnavailable  = errors.New("inventory service unavailable")
	ErrSignatureInvalid      = errors.New("callback signature invalid")
	ErrCallbackMalformed     = errors.New("callback payload malformed")
	ErrPaymentProviderFailed = errors.New("payment provider failed")

	ErrSeatLockCreateFailed = errors.New("seat lock create failed")
	ErrOrderCreateFailed    = errors.New("order create failed")
	ErrOrderUpdateFailed    = errors.New("order update failed")
	ErrPaymentCreateFailed  = errors.New("payment create failed")
	ErrPaymentUpdateFailed  = errors.New("payment update failed")
)

var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrValidation, KindValidation},
	{ErrInvalidPricingInput, KindValidation},
	{ErrInvalidCertificateFormat, KindValidation},
	{ErrPassengerCountMismatch, KindValidation},
	{ErrUnsupportedChannel, KindValidation},
	{ErrInsufficientInventory, KindStateConflict},
	{ErrLockAlreadyConsumed, KindStateConflict},
	{ErrLockExpired, KindStateConflict},
	{ErrInvalidTransition, KindStateConflict},
	{ErrOrderNotPayable, KindStateConflict},
	{ErrOrderNoLongerPayable, KindStateConflict},
	{ErrAmountMismatch, KindStateConflict},
	{ErrPaymentAlreadySucceeded, KindStateConflict},
	{ErrLockNotFound, KindNotFound},
	{ErrOrderNotFound, KindNotFound},
	{ErrPaymentNotFound, KindNotFound},
	{ErrInventoryCheckTimeout, KindExternalFailure},
	{ErrInventoryUnavailable, KindExternalFailure},
	{ErrSignatureInvalid, KindExternalFailure},
	{ErrCallbackMalformed, KindExternalFailure},
	{ErrPaymentProviderFailed, KindExternalFailure},
}

// KindOf 返回错误分类，未识别的错误归为 internal
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, item := range errorKinds {
		if errors.Is(err, item.target) {
			return item.kind
		}
	}
	return KindInternal
}

// ValidationError 字段级校验错误
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError 创建字段校验错误
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add 记录字段错误
func (e *ValidationError) Add(field, reason string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = reason
}

// HasErrors 是否存在字段错误
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// FieldNames 按字典序返回出错字段
func (e *ValidationError) FieldNames() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *ValidationError) Error() string {
	names := e.FieldNames()
	if len(names) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// errOrNil 无字段错误时返回 nil
func (e *ValidationError) errOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
