package token

import "errors"

var (
	// ErrTokenExpired token 已过期
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenMalformed token 格式错误
	ErrTokenMalformed = errors.New("token: malformed")
	// ErrSignatureInvalid 签名无效
	ErrSignatureInvalid = errors.New("token: invalid signature")

	// ErrEmptySecret 密钥不能为空
	ErrEmptySecret = errors.New("token: secret cannot be empty")
)

// IsVerificationFailure reports whether err is one of the verification
// failure kinds. Callers collapse all of them to "not authenticated";
// the distinct values exist for logging only.
func IsVerificationFailure(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrSignatureInvalid)
}
