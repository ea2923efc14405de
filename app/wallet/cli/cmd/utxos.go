package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var utxosCmd = &cobra.Command{
	Use:   "utxos",
	Short: "List your unspent outputs",
	Run:   utxosRun,
}

func init() {
	rootCmd.AddCommand(utxosCmd)
}

func utxosRun(cmd *cobra.Command, args []string) {
	token := loadToken()
	walletID := myWallet(token)

	var out []struct {
		ID              int64  `json:"id"`
		Amount          string `json:"amount"`
		TransactionHash string `json:"transaction_hash"`
		OutputIndex     int    `json:"output_index"`
		Status          string `json:"status"`
	}
	if err := call(http.MethodGet, "/v1/wallet/"+walletID+"/utxos", token, nil, &out); err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Wallet:", walletID)
	for _, u := range out {
		fmt.Printf("%-10s %s  from %s[%d]\n", u.Status, u.Amount, u.TransactionHash, u.OutputIndex)
	}
}
