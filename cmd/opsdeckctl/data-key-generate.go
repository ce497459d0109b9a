package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/pkg/vault"
)

// dataKeyGenerateCmd represents the data-key > generate command
var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `
Generate a data encryption key

Use this command to generate a new Base64-encoded 256 bit data encryption key. Once generated, this key should be placed into the environment of
the opsdeck server. It will be used to encrypt all sensitive data which is stored in the database, such as the secrets held by stored
credentials. The same command can mint the session token secret.

Example:

$ export OPSDECK_DATA_KEY="$(opsdeckctl data-key generate)"
$ export OPSDECK_TOKEN_SECRET="$(opsdeckctl data-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		key, _ := vault.GenerateDataKey()
		fmt.Printf("%s", key)
	},
}

func init() {
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}
