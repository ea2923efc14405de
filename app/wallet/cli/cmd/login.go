package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and cache a bearer token",
	Run:   loginRun,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Email for the account.")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "w", "", "Password for the account.")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")
}

func loginRun(cmd *cobra.Command, args []string) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{
		Email:    loginEmail,
		Password: loginPassword,
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			WalletID string `json:"wallet_id"`
		} `json:"user"`
	}
	if err := call(http.MethodPost, "/v1/auth/login", "", in, &out); err != nil {
		log.Fatal(err)
	}

	if err := saveToken(out.Token); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Logged in. Wallet:", out.User.WalletID)
}
