package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"relay-core/internal/service/signer"
	"relay-core/pkg/address"
	"relay-core/pkg/bip39"
	"relay-core/pkg/keystore"
)

var mnemonicCmd = &cobra.Command{
	Use:   "mnemonic",
	Short: "生成本地签名器使用的助记词 keystore",
	Long: `生成 BIP-39 助记词并加密保存, 供 signer.mode=local 的 relay-server 使用 (signer.keystore)。
指定 --path 时同时打印该 path 派生的 secp256k1 公钥和外部账户地址。`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		bits, _ := cmd.Flags().GetInt("bits")

		// 1. 生成助记词
		mnemonic, err := bip39.NewMnemonicService().GenerateMnemonic(bits)
		exitOnErr("生成助记词失败", err)
		fmt.Println("---------------------------------------------------")
		fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
		fmt.Println("---------------------------------------------------")

		// 2. 加密保存
		password, err := readPassword("请设置 Keystore 密码: ", true)
		exitOnErr("密码", err)
		k, err := keystore.Encrypt(keystore.KindMnemonic, []byte(mnemonic), password, scryptN(cmd))
		exitOnErr("加密失败", err)
		exitOnErr("保存 Keystore 失败", k.SaveToFile(output))
		fmt.Printf("已保存到: %s\n", output)

		// 3. 派生示例
		if err := printDerived(cmd, mnemonic); err != nil {
			exitOnErr("派生失败", err)
		}
		fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以为所有 bundle 签名。")
	},
}

func printDerived(cmd *cobra.Command, mnemonic string) error {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		return nil
	}
	predecessor, _ := cmd.Flags().GetString("predecessor")

	s, err := signer.NewLocalSigner(mnemonic, predecessor)
	if err != nil {
		return err
	}
	pk, err := s.DerivedPublicKey(context.Background(), path)
	if err != nil {
		return err
	}
	account, err := address.EthImplicitAccountFromNearKey(pk)
	if err != nil {
		return err
	}
	fmt.Printf("Path:        %s\n", path)
	fmt.Printf("MPC Key:     %s\n", pk)
	fmt.Printf("Eth Address: %s\n", account)
	fmt.Println("---------------------------------------------------")
	return nil
}

func init() {
	rootCmd.AddCommand(mnemonicCmd)
	mnemonicCmd.Flags().StringP("output", "o", "signer_mnemonic.json", "Keystore 文件路径")
	mnemonicCmd.Flags().Int("bits", 256, "熵长度 (128 / 256)")
	mnemonicCmd.Flags().String("path", "", "打印该 path 派生的公钥")
	mnemonicCmd.Flags().String("predecessor", "relay.testnet", "relay 账户 (app.account_id)")
}
