package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// User, dış kimlik sisteminin kullanıcısının yerel yansıması.
//
// Kimlik yönetimi bu servisin dışındadır; tablo sadece mention çözümlemesi
// (username / email local part) ve bildirim email'i için tutulur.
// Auth middleware her istekte token claim'lerinden kaydı günceller.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MentionHandle, @mention eşleşmesinde kullanılan ad.
// Username boşsa email'in @ öncesi kısmı kullanılır.
func (u *User) MentionHandle() string {
	if u.Username != "" {
		return u.Username
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// Name, bildirim başlıklarında gösterilen ad.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	if h := u.MentionHandle(); h != "" {
		return h
	}
	return u.ID
}

// SyncUserRequest, PUT /api/users/me body'si.
type SyncUserRequest struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	Email       string  `json:"email"`
}

// Validate, kullanıcı yansıma isteğini kontrol eder.
func (r *SyncUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	if utf8.RuneCountInString(r.Username) > 64 {
		return fmt.Errorf("username must be at most 64 characters")
	}
	for _, ch := range r.Username {
		if ch == '@' || ch == ' ' {
			return fmt.Errorf("username contains invalid characters")
		}
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return fmt.Errorf("email is invalid")
	}
	if r.DisplayName != nil {
		*r.DisplayName = strings.TrimSpace(*r.DisplayName)
		if utf8.RuneCountInString(*r.DisplayName) > 64 {
			return fmt.Errorf("display name must be at most 64 characters")
		}
	}
	return nil
}
