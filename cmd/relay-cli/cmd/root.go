package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"relay-core/pkg/keystore"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "relay-cli",
	Short: "relay 客户端命令行工具",
	Long: `管理 session key 和签名器助记词的离线工具。
支持生成加密保存的 ed25519 session key, 对动作 payload 签名,
以及生成本地签名器使用的助记词 keystore。`,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("light", false, "使用轻量 scrypt 参数 (仅测试)")
}

func scryptN(cmd *cobra.Command) int {
	if light, _ := cmd.Flags().GetBool("light"); light {
		return keystore.LightScryptN
	}
	return keystore.StandardScryptN
}

// readPassword confirm=true 时要求输入两次
func readPassword(prompt string, confirm bool) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	if !confirm {
		return string(pw), nil
	}

	fmt.Print("请再次输入密码: ")
	again, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	if string(pw) != string(again) {
		return "", fmt.Errorf("两次输入的密码不一致")
	}
	return string(pw), nil
}

func exitOnErr(msg string, err error) {
	if err != nil {
		fmt.Printf("%s: %v\n", msg, err)
		os.Exit(1)
	}
}
