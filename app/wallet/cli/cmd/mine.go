package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the next block, crediting the reward to your wallet",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) {
	token := loadToken()

	var out struct {
		Index            int64  `json:"index"`
		Hash             string `json:"hash"`
		Nonce            int64  `json:"nonce"`
		TransactionCount int    `json:"transaction_count"`
		ElapsedMS        int64  `json:"elapsed_ms"`
	}
	if err := call(http.MethodPost, "/v1/mining/mine-block", token, nil, &out); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Block %d mined: %s\n", out.Index, out.Hash)
	fmt.Printf("Txs: %d  Nonce: %d  Elapsed: %dms\n", out.TransactionCount, out.Nonce, out.ElapsedMS)
}
