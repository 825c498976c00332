package compiler

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"relay-core/internal/model"
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

const (
	// YoctoPerWei NEAR EVM 上 1 wei = 10^6 yoctoNEAR, 余数通过 yocto_near 参数传递
	YoctoPerWei = 1_000_000
	// GasMultiplier NEAR gas -> EVM gas
	GasMultiplier = 100_000_000
	// NearEVMChainID NEAR EVM (Aurora 兼容) 主网 chain id
	NearEVMChainID = 397
)

// EVMBuild 待签名的 EVM 交易和回调需要的上下文
type EVMBuild struct {
	Tx       *types.Transaction
	Digest   [32]byte
	To       common.Address
	Target   string
	Deposit  near.Token
	Wei      *uint256.Int
	Yocto    uint32
	GasLimit uint64
}

// Compiler 把通过认证的动作编译成目标链交易
type Compiler struct {
	chainID *big.Int
	signer  types.Signer
	wallet  abi.ABI
}

func New(chainID int64) (*Compiler, error) {
	parsed, err := abi.JSON(strings.NewReader(walletABIJSON))
	if err != nil {
		return nil, fmt.Errorf("解析钱包 ABI 失败: %w", err)
	}
	id := big.NewInt(chainID)
	return &Compiler{
		chainID: id,
		signer:  types.NewLondonSigner(id),
		wallet:  parsed,
	}, nil
}

func (c *Compiler) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// SplitValue 拆成 wei 和 yocto 余数, wei*10^6 + yocto == amount
func SplitValue(amount near.Token) (*uint256.Int, uint32, error) {
	wei, rem := amount.DivMod(YoctoPerWei)
	if rem >= YoctoPerWei {
		return nil, 0, errno.ErrInvalidEncoding.WithMessage("yocto remainder exceeds uint32 width")
	}
	return wei, uint32(rem), nil
}

// AccountToEVMAddress keccak256(account_id) 的后 20 字节
func AccountToEVMAddress(accountID string) (common.Address, error) {
	hash := crypto.Keccak256([]byte(accountID))
	if len(hash) != 32 {
		return common.Address{}, errno.ErrInvalidEncoding.WithMessage("keccak digest must be 32 bytes")
	}
	tail := hash[12:32]
	if len(tail) != common.AddressLength {
		return common.Address{}, errno.ErrInvalidEncoding.WithMessage("address must be 20 bytes")
	}
	return common.BytesToAddress(tail), nil
}

// NearGasToEVMGas 向上取整, 预算不会少于源链
func NearGasToEVMGas(nearGas uint64) uint64 {
	q := nearGas / GasMultiplier
	if nearGas%GasMultiplier != 0 {
		q++
	}
	return q
}

// CompileEVM 构造 EIP-1559 交易并计算待签名摘要
func (c *Compiler) CompileEVM(action model.Action, nonce uint64) (*EVMBuild, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	amount := action.Amount()
	wei, yocto, err := SplitValue(amount)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case action.FunctionCall != nil:
		fc := action.FunctionCall
		data, err = c.wallet.Pack("functionCall", fc.ContractID, fc.MethodName, []byte(fc.Args), uint64(fc.Gas), yocto)
	default:
		data, err = c.wallet.Pack("transfer", action.Transfer.ReceiverID, yocto)
	}
	if err != nil {
		return nil, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("abi encode: %v", err))
	}

	to, err := AccountToEVMAddress(action.Target())
	if err != nil {
		return nil, err
	}
	gasLimit := NearGasToEVMGas(action.Gas())

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.ChainID(),
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(1),
		Gas:       gasLimit,
		To:        &to,
		Value:     wei.ToBig(),
		Data:      data,
	})

	// keccak256(0x02 || rlp([chain_id, nonce, tip, fee_cap, gas, to, value, data, access_list]))
	hash := c.signer.Hash(tx)
	if len(hash.Bytes()) != 32 {
		return nil, errno.ErrInvalidEncoding.WithMessage("signing digest must be 32 bytes")
	}

	return &EVMBuild{
		Tx:       tx,
		Digest:   hash,
		To:       to,
		Target:   action.Target(),
		Deposit:  amount,
		Wei:      wei,
		Yocto:    yocto,
		GasLimit: gasLimit,
	}, nil
}

// AttachEVMSignature 把 (r, s, v) 附加到未签名交易, 返回 EIP-2718 编码
func (c *Compiler) AttachEVMSignature(unsigned []byte, r, s []byte, v byte) ([]byte, error) {
	if len(r) != 32 || len(s) != 32 {
		return nil, errno.ErrMalformedSignature.WithMessage(fmt.Sprintf("r=%d s=%d bytes", len(r), len(s)))
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(unsigned); err != nil {
		return nil, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("unsigned tx: %v", err))
	}

	sig := make([]byte, 0, 65)
	sig = append(sig, r...)
	sig = append(sig, s...)
	sig = append(sig, v)

	signed, err := tx.WithSignature(c.signer, sig)
	if err != nil {
		return nil, errno.ErrMalformedSignature.WithMessage(err.Error())
	}
	return signed.MarshalBinary()
}
