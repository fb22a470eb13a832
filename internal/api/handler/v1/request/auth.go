package request

import (
	"errors"
	"regexp"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

const (
	passwordRegexPattern = `^(?=.*[A-Za-z])(?=.*\d).{8,}$`
)

var (
	errInvalidPassword = errors.New("the password must be at least 8 characters and contain 1 letter and 1 number")

	// RE2 has no lookahead, hence regexp2.
	passwordExp = regexp2.MustCompile(passwordRegexPattern, regexp2.None)
	userNameExp = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

type RegisterRequest struct {
	Name     string `json:"name"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
	Balance  *int64 `json:"balance,omitempty"`
}

func (req *RegisterRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.UserName, validation.Required, validation.Length(3, 32), validation.Match(userNameExp)),
		validation.Field(&req.Password, validation.Required),
		validation.Field(&req.Balance, validation.Min(int64(0)), validation.Max(domain.MaxAmount)),
	)
	if err != nil {
		return err
	}

	ok, err := passwordExp.MatchString(req.Password)
	if err != nil || !ok {
		return errInvalidPassword
	}

	return nil
}

type LoginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.UserName, validation.Required),
		validation.Field(&req.Password, validation.Required),
	)
}
