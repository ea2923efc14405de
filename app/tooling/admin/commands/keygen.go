package commands

import (
	"fmt"

	"github.com/dinarlabs/ledger/foundation/keystore"
)

// Keygen generates a fresh 256 bit service key and prints it hex
// encoded, ready to be used as AES_ENCRYPTION_KEY.
func Keygen() error {
	key, err := keystore.GenerateKey()
	if err != nil {
		return err
	}

	fmt.Println(key)
	return nil
}
