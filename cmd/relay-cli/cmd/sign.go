package cmd

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relay-core/internal/model"
	"relay-core/internal/service/auth"
	"relay-core/pkg/keystore"
	"relay-core/pkg/near"
)

// signedRequest 可直接 POST 到 /api/v1/execute 或 /api/v1/execute_native
type signedRequest struct {
	Signature  string `json:"signature"`
	Payload    any    `json:"payload"`
	SessionKey string `json:"session_key"`
	AppID      string `json:"app_id,omitempty"`
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "用 session key 签名动作 (Offline Signing)",
	Long:  `读取动作 payload JSON 文件，使用 Keystore 中的 session key 签名，输出可直接提交给 relay 的请求体。`,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile, _ := cmd.Flags().GetString("input")
		outputFile, _ := cmd.Flags().GetString("output")
		keystoreFile, _ := cmd.Flags().GetString("keystore")
		appID, _ := cmd.Flags().GetString("app")
		native, _ := cmd.Flags().GetBool("native")

		// 1. 读取 payload
		data, err := os.ReadFile(inputFile)
		exitOnErr("读取输入文件失败", err)

		// 2. 加载 Keystore
		fmt.Printf("正在从 %s 加载 Keystore...\n", keystoreFile)
		k, err := keystore.LoadFromFile(keystoreFile)
		exitOnErr("加载 Keystore 失败", err)
		if k.Kind != keystore.KindSessionKey {
			exitOnErr("加载 Keystore 失败", fmt.Errorf("kind=%s, 需要 %s", k.Kind, keystore.KindSessionKey))
		}

		// 3. 输入密码并解密
		password, err := readPassword("请输入 Keystore 密码以确认签名: ", false)
		exitOnErr("密码", err)
		seed, err := keystore.Decrypt(k, password)
		exitOnErr("解密失败 (密码错误?)", err)

		// 4. 签名
		req, err := buildSignedRequest(seed, appID, data, native)
		exitOnErr("签名失败", err)

		// 5. 输出结果
		out, _ := json.MarshalIndent(req, "", "  ")
		if outputFile == "" {
			fmt.Println(string(out))
			return
		}
		exitOnErr("保存结果失败", os.WriteFile(outputFile, out, 0644))
		fmt.Printf("\n✅ 签名成功!\n")
		fmt.Printf("Session Key: %s\n", req.SessionKey)
		fmt.Printf("已保存到:    %s\n", outputFile)
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringP("input", "i", "payload.json", "动作 payload 文件路径")
	signCmd.Flags().StringP("output", "o", "", "请求体输出路径, 为空时打印到标准输出")
	signCmd.Flags().StringP("keystore", "k", "session_key.json", "Keystore 文件路径")
	signCmd.Flags().String("app", "", "App ID, 为空时使用 session key 注册时的 App")
	signCmd.Flags().Bool("native", false, "payload 为原生交易变体 (需要 block_hash)")
}

// buildSignedRequest 解析 payload, 校验动作并签名
func buildSignedRequest(seed []byte, appID string, data []byte, native bool) (*signedRequest, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid session key seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pk, err := near.NewPublicKey(near.ED25519, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	var (
		payload any
		action  model.Action
	)
	if native {
		var p model.NativePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("解析 payload 失败: %w", err)
		}
		payload, action = p, p.Action
	} else {
		var p model.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("解析 payload 失败: %w", err)
		}
		payload, action = p, p.Action
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}

	sig, err := auth.Sign(payload, priv)
	if err != nil {
		return nil, err
	}
	return &signedRequest{
		Signature:  base64.StdEncoding.EncodeToString(sig),
		Payload:    payload,
		SessionKey: pk.String(),
		AppID:      appID,
	}, nil
}
