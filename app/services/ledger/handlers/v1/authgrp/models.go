package authgrp

import (
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/foundation/validate"
)

// AppRegister is what a caller provides to create an account.
type AppRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	CNIC     string `json:"cnic" validate:"required,min=5,max=30"`
}

// Validate checks the data in the model is considered clean.
func (app AppRegister) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppLogin is what a caller provides to authenticate.
type AppLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (app AppLogin) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppVerifyOTP is what a caller provides to verify an account.
type AppVerifyOTP struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// Validate checks the data in the model is considered clean.
func (app AppVerifyOTP) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppSendOTP is what a caller provides to request a fresh passcode.
type AppSendOTP struct {
	Email string `json:"email" validate:"required,email"`
}

// Validate checks the data in the model is considered clean.
func (app AppSendOTP) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppUpdateProfile is what a caller provides to change their account.
// Omitted fields keep their stored values.
type AppUpdateProfile struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// Validate checks the data in the model is considered clean.
func (app AppUpdateProfile) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if app.FullName == nil && app.Email == nil {
		return validate.FieldErrors{{Field: "full_name", Err: "no fields to update"}}
	}
	return nil
}

// =============================================================================

// AppUser is an account as exposed over the API.
type AppUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	CNIC       string `json:"cnic"`
	WalletID   string `json:"wallet_id"`
	IsVerified bool   `json:"is_verified"`
	CreatedAt  string `json:"created_at"`
}

func toAppUser(usr user.User) AppUser {
	return AppUser{
		ID:         usr.ID,
		Email:      usr.Email,
		FullName:   usr.FullName,
		CNIC:       usr.CNIC,
		WalletID:   usr.WalletID,
		IsVerified: usr.IsVerified,
		CreatedAt:  usr.CreatedAt.Format(time.RFC3339),
	}
}

// AppAccount is the registration response: the account plus its new
// wallet id.
type AppAccount struct {
	User     AppUser `json:"user"`
	WalletID string  `json:"wallet_id"`
}

func toAppAccount(acct ledger.Account) AppAccount {
	return AppAccount{
		User:     toAppUser(acct.User),
		WalletID: acct.Wallet.WalletID,
	}
}

// AppToken is the login response.
type AppToken struct {
	Token string  `json:"token"`
	User  AppUser `json:"user"`
}

func toAppToken(token string, usr user.User) AppToken {
	return AppToken{
		Token: token,
		User:  toAppUser(usr),
	}
}

// AppMessage carries a human readable result for operations that return
// no entity.
type AppMessage struct {
	Message string `json:"message"`
}

func toAppMessage(msg string) AppMessage {
	return AppMessage{Message: msg}
}
