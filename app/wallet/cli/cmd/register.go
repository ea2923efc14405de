package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	regEmail    string
	regPassword string
	regName     string
	regCNIC     string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and its custodial wallet",
	Run:   registerRun,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&regEmail, "email", "e", "", "Email for the account.")
	registerCmd.Flags().StringVarP(&regPassword, "password", "w", "", "Password for the account.")
	registerCmd.Flags().StringVarP(&regName, "name", "n", "", "Full name.")
	registerCmd.Flags().StringVarP(&regCNIC, "cnic", "c", "", "National identity number.")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("cnic")
}

func registerRun(cmd *cobra.Command, args []string) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		CNIC     string `json:"cnic"`
	}{
		Email:    regEmail,
		Password: regPassword,
		FullName: regName,
		CNIC:     regCNIC,
	}

	var out struct {
		WalletID string `json:"wallet_id"`
	}
	if err := call(http.MethodPost, "/v1/auth/register", "", in, &out); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Wallet:", out.WalletID)
	fmt.Println("Check your email for the verification code, then run: dinar verify")
}
