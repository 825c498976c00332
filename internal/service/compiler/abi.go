package compiler

// NEAR EVM 钱包合约入口, 函数签名固定:
//
//	functionCall(string,string,bytes,uint64,uint32)
//	transfer(string,uint32)
const walletABIJSON = `[
  {
    "type": "function",
    "name": "functionCall",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "receiver_id", "type": "string"},
      {"name": "method_name", "type": "string"},
      {"name": "args", "type": "bytes"},
      {"name": "gas", "type": "uint64"},
      {"name": "yocto_near", "type": "uint32"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "transfer",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "receiver_id", "type": "string"},
      {"name": "yocto_near", "type": "uint32"}
    ],
    "outputs": []
  }
]`
