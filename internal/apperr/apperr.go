package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
// 所有业务错误均归入以下类别之一，handler层按类别映射HTTP状态码
type Kind int

const (
	KindUnknown      Kind = iota
	KindValidation        // 参数校验失败
	KindUnauthorized      // 未认证或凭证无效
	KindForbidden         // 已认证但无权限
	KindNotFound          // 引用的实体不存在
	KindConflict          // 幂等冲突（重复加入、附件已绑定等）
	KindStorage           // 存储层不可用
)

// Error 携带类别的业务错误
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind 返回错误类别
func (e *Error) Kind() Kind { return e.kind }

// New 创建指定类别的错误
func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Newf 创建指定类别的格式化错误
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并赋予类别
func Wrap(kind Kind, msg string, err error) error {
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf 解析错误类别（沿Unwrap链查找）
// 无法识别的错误视为存储层错误（未分类的底层失败）
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindStorage
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
