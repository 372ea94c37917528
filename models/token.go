package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims, dış kimlik sisteminin imzaladığı token'ın payload'ı.
//
// Subject (sub) kullanıcı ID'sidir. Username / email / name opsiyoneldir;
// varsa yerel User yansıması bunlarla güncellenir.
type IdentityClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID, token'ın temsil ettiği kullanıcı ID'si.
func (c *IdentityClaims) UserID() string {
	return c.Subject
}
