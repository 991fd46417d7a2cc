package request

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
)

const minPasswordLength = 8

type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (req *RegisterRequest) Validate() error {
	req.Email = strings.TrimSpace(req.Email)
	return validation.ValidateStruct(
		req,
		validation.Field(&req.DisplayName, validation.Required, validation.Length(1, 80)),
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required, validation.Length(minPasswordLength, 72)),
		validation.Field(&req.Role, validation.In(models.RoleAdmin, models.RoleObserver)),
	)
}

func (req *RegisterRequest) ToModel() *models.RegisterRequest {
	return &models.RegisterRequest{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	req.Email = strings.TrimSpace(req.Email)
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required),
	)
}

func (req *LoginRequest) ToModel() *models.LoginRequest {
	return &models.LoginRequest{Email: req.Email, Password: req.Password}
}
