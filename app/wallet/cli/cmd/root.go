// Package cmd contains the wallet client commands. The service holds
// the signing keys, so every command works through the HTTP API with a
// bearer token cached on disk by the login command.
package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	url       string
	tokenPath string
)

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the ledger service.")
	rootCmd.PersistentFlags().StringVarP(&tokenPath, "token-path", "p", filepath.Join(home, ".dinar", "token"), "Path to the cached bearer token.")
}

var rootCmd = &cobra.Command{
	Use:   "dinar",
	Short: "Command line wallet for the ledger service",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// =============================================================================

// envelope mirrors the document wrapping every v1 response.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// call performs one API request and decodes the enveloped result into out.
func call(method string, path string, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if !env.Success {
		if len(env.Fields) > 0 {
			return fmt.Errorf("%s: %v", env.Message, env.Fields)
		}
		return errors.New(env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding data: %w", err)
		}
	}

	return nil
}

// loadToken reads the cached bearer token written by the login command.
func loadToken() string {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		log.Fatalf("no cached token at %s, run: dinar login", tokenPath)
	}
	return strings.TrimSpace(string(data))
}

// saveToken caches the bearer token for later commands.
func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenPath, []byte(token), 0o600)
}

// myWallet resolves the authenticated caller's wallet id.
func myWallet(token string) string {
	var usr struct {
		WalletID string `json:"wallet_id"`
	}
	if err := call(http.MethodGet, "/v1/auth/profile", token, nil, &usr); err != nil {
		log.Fatal(err)
	}
	return usr.WalletID
}
