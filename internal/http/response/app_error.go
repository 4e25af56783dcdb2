package response

// 业务错误分类，与 service.KindOf 的取值一致
const (
	KindValidation      = "validation"
	KindStateConflict   = "state_conflict"
	KindNotFound        = "not_found"
	KindExternalFailure = "external_failure"
	KindInternal        = "internal"
)

// AppError 接口层错误：业务码、文案 key 与原始错误
type AppError struct {
	Code    int
	Key     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误，Message 由调用方按语言填充
func WrapError(code int, key string, err error) *AppError {
	return &AppError{
		Code: code,
		Key:  key,
		Err:  err,
	}
}

// CodeForKind 未配置映射规则时按错误分类给出兜底业务码
func CodeForKind(kind string) int {
	switch kind {
	case KindValidation:
		return CodeBadRequest
	case KindStateConflict:
		return CodeConflict
	case KindNotFound:
		return CodeNotFound
	case KindExternalFailure:
		return CodeBadGateway
	default:
		return CodeInternal
	}
}
