package apierror

import (
	"fmt"
	"net/http"
)

// 命令处理过程中的错误分类
var (
	// ErrInvalidParameter 请求中的字段缺失、格式错误或枚举值不受支持
	ErrInvalidParameter = &Error{
		Code:       "InvalidParameter",
		Message:    "The request contains an invalid or unsupported value.",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrNotFound 请求引用的虚拟机、存储池或文件不存在
	ErrNotFound = &Error{
		Code:       "NotFound",
		Message:    "The referenced resource does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrUnsupported 请求的组合当前实现不支持
	ErrUnsupported = &Error{
		Code:       "Unsupported",
		Message:    "The requested operation is not supported.",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrIO 网络共享、HTTP 或对象存储访问失败
	ErrIO = &Error{
		Code:       "IOFailure",
		Message:    "An I/O operation failed.",
		HTTPStatus: http.StatusBadGateway,
	}

	// ErrInvariant 执行后检查失败，例如解压后残留临时文件
	ErrInvariant = &Error{
		Code:       "InvariantViolation",
		Message:    "An internal consistency check failed.",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrMalformedCommand 请求体无法解析为命令
	ErrMalformedCommand = &Error{
		Code:       "MalformedCommand",
		Message:    "The request body is not a valid command.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// Invalidf 创建校验失败错误
func Invalidf(format string, args ...any) *Error {
	return WrapError(ErrInvalidParameter, fmt.Sprintf(format, args...), nil)
}

// NotFoundf 创建资源不存在错误
func NotFoundf(format string, args ...any) *Error {
	return WrapError(ErrNotFound, fmt.Sprintf(format, args...), nil)
}

// Unsupportedf 创建不支持错误
func Unsupportedf(format string, args ...any) *Error {
	return WrapError(ErrUnsupported, fmt.Sprintf(format, args...), nil)
}

// IO 包装 I/O 错误
func IO(message string, raw error) *Error {
	if raw != nil {
		message = fmt.Sprintf("%s: %v", message, raw)
	}
	return WrapError(ErrIO, message, raw)
}

// Invariantf 创建不变量破坏错误
func Invariantf(format string, args ...any) *Error {
	return WrapError(ErrInvariant, fmt.Sprintf(format, args...), nil)
}
