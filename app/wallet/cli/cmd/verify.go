package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	verifyEmail string
	verifyOTP   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an account with the emailed passcode",
	Run:   verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyEmail, "email", "e", "", "Email for the account.")
	verifyCmd.Flags().StringVarP(&verifyOTP, "otp", "o", "", "Six digit passcode.")
	verifyCmd.MarkFlagRequired("email")
	verifyCmd.MarkFlagRequired("otp")
}

func verifyRun(cmd *cobra.Command, args []string) {
	in := struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}{
		Email: verifyEmail,
		OTP:   verifyOTP,
	}

	if err := call(http.MethodPost, "/v1/auth/verify-otp", "", in, nil); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Account verified. You can log in now.")
}
