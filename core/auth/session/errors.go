package session

import "errors"

var (
	// ErrNotFound 会话未找到（或已过期被清理）
	ErrNotFound = errors.New("session: not found")
	// ErrRevoked 会话已撤销
	ErrRevoked = errors.New("session: revoked")
	// ErrConflict a concurrent writer won the update; safe to retry
	ErrConflict = errors.New("session: concurrent update conflict")
)
