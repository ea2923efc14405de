package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	sendTo     string
	sendAmount string
	sendNote   string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send coins to another wallet",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "Recipient wallet id.")
	sendCmd.Flags().StringVarP(&sendAmount, "amount", "a", "", "Amount to send.")
	sendCmd.Flags().StringVarP(&sendNote, "note", "n", "", "Optional note, hashed into the transaction.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) {
	token := loadToken()

	in := struct {
		RecipientWalletID string `json:"recipient_wallet_id"`
		Amount            string `json:"amount"`
		Note              string `json:"note,omitempty"`
	}{
		RecipientWalletID: sendTo,
		Amount:            sendAmount,
		Note:              sendNote,
	}

	var out struct {
		TransactionHash string `json:"transaction_hash"`
		Status          string `json:"status"`
		Fee             string `json:"fee"`
	}
	if err := call(http.MethodPost, "/v1/transactions/create", token, in, &out); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Tx:", out.TransactionHash)
	fmt.Println("Status:", out.Status, " Fee:", out.Fee)
}
