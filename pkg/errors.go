// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error taksonomisi:
//
//	ErrBadRequest    → ValidationError (bozuk içerik, geçersiz seçenek, tip uyuşmazlığı)
//	ErrForbidden     → PermissionError (katılımcı olmayan kullanıcı)
//	ErrNotFound      → NotFoundError
//	ErrAlreadyExists → ConflictError (DM yarışı servis içinde çözülür, dışarı sızmaz)
//
// Karşılaştırma her zaman errors.Is ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
package pkg

import "errors"

// Domain-level error'lar.
// Service katmanı bunları fmt.Errorf("%w: ...") ile sarmalar, handler ve
// WebSocket katmanı status code'a çevirir.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnavailable   = errors.New("service unavailable")
	ErrInternal      = errors.New("internal error")
)
