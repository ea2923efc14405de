package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your spendable balance",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	token := loadToken()
	walletID := myWallet(token)

	var out struct {
		Balance string `json:"balance"`
	}
	if err := call(http.MethodGet, "/v1/wallet/"+walletID+"/balance", token, nil, &out); err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Wallet:", walletID)
	fmt.Println(out.Balance)
}
