package bengrp

import (
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/beneficiary"
	"github.com/dinarlabs/ledger/foundation/validate"
)

// AppNewBeneficiary is what a caller provides to save a recipient.
type AppNewBeneficiary struct {
	WalletID string `json:"wallet_id" validate:"required,len=64,hexadecimal"`
	Nickname string `json:"nickname" validate:"required,min=1,max=50"`
}

// Validate checks the data in the model is considered clean.
func (app AppNewBeneficiary) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppBeneficiary is a saved recipient returned to clients.
type AppBeneficiary struct {
	ID        string `json:"id"`
	WalletID  string `json:"wallet_id"`
	Nickname  string `json:"nickname"`
	CreatedAt string `json:"created_at"`
}

func toAppBeneficiary(ben beneficiary.Beneficiary) AppBeneficiary {
	return AppBeneficiary{
		ID:        ben.ID,
		WalletID:  ben.WalletID,
		Nickname:  ben.Nickname,
		CreatedAt: ben.CreatedAt.Format(time.RFC3339),
	}
}

func toAppBeneficiaries(bens []beneficiary.Beneficiary) []AppBeneficiary {
	app := make([]AppBeneficiary, len(bens))
	for i, ben := range bens {
		app[i] = toAppBeneficiary(ben)
	}
	return app
}
