package auth

import (
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	return v.Err()
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required()
	return v.Err()
}

// UserResponse carries the grant list only when it loaded. A loaded but empty
// list is sent as [] so clients can tell it from an omitted one.
type UserResponse struct {
	ID            int64                 `json:"id"`
	Email         string                `json:"email"`
	IsSystemAdmin bool                  `json:"isSystemAdmin"`
	Permissions   *[]access.GrantRecord `json:"permissions,omitempty"`
}

type LoginResponse struct {
	Success      bool         `json:"success"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

type RefreshResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type ValidateResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

func loginResponse(res *LoginResult) LoginResponse {
	var permissions *[]access.GrantRecord
	if res.Grants != nil {
		permissions = &res.Grants
	}
	return LoginResponse{
		Success:      true,
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User: UserResponse{
			ID:            res.User.ID,
			Email:         res.User.Email,
			IsSystemAdmin: res.User.IsSystemAdmin,
			Permissions:   permissions,
		},
	}
}
