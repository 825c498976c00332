package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"relay-core/pkg/keystore"
	"relay-core/pkg/near"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "生成一个新的 session key",
	Long:  `生成 ed25519 session key, 私钥以 keystore 形式加密保存, 输出的公钥交给 oracle 注册。`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		// 1. 生成密钥
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		exitOnErr("生成密钥失败", err)
		pk, err := near.NewPublicKey(near.ED25519, pub)
		exitOnErr("编码公钥失败", err)

		// 2. 加密保存
		password, err := readPassword("请设置 Keystore 密码: ", true)
		exitOnErr("密码", err)
		k, err := keystore.Encrypt(keystore.KindSessionKey, priv.Seed(), password, scryptN(cmd))
		exitOnErr("加密失败", err)
		k.PublicKey = pk.String()
		exitOnErr("保存 Keystore 失败", k.SaveToFile(output))

		fmt.Println("---------------------------------------------------")
		fmt.Printf("Session Key: %s\n", pk)
		fmt.Printf("已保存到:    %s\n", output)
		fmt.Println("---------------------------------------------------")
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringP("output", "o", "session_key.json", "Keystore 文件路径")
}
