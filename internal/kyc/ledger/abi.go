package ledger

// Contract method names.
const (
	MethodSubmit = "submitKYC"
	MethodUpdate = "updateKYC"
	MethodGet    = "getKYCInfo"
	MethodFee    = "verificationFee"
)

// KYCABI is the interface of the deployed KYC registry contract. Records are
// keyed by bytes32: addresses are left-padded to 32 bytes, derived ids are
// used as-is.
const KYCABI = `[
  {
    "type": "function",
    "name": "submitKYC",
    "stateMutability": "payable",
    "inputs": [
      {"name": "customerId", "type": "bytes32"},
      {"name": "name", "type": "string"},
      {"name": "dob", "type": "string"},
      {"name": "homeAddress", "type": "string"},
      {"name": "documentHash", "type": "bytes32"},
      {"name": "fileKey", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "updateKYC",
    "stateMutability": "payable",
    "inputs": [
      {"name": "customerId", "type": "bytes32"},
      {"name": "name", "type": "string"},
      {"name": "dob", "type": "string"},
      {"name": "homeAddress", "type": "string"},
      {"name": "documentHash", "type": "bytes32"},
      {"name": "fileKey", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getKYCInfo",
    "stateMutability": "view",
    "inputs": [
      {"name": "customerId", "type": "bytes32"}
    ],
    "outputs": [
      {"name": "name", "type": "string"},
      {"name": "dob", "type": "string"},
      {"name": "homeAddress", "type": "string"},
      {"name": "documentHash", "type": "bytes32"},
      {"name": "fileKey", "type": "string"},
      {"name": "isVerified", "type": "bool"},
      {"name": "exists", "type": "bool"}
    ]
  },
  {
    "type": "function",
    "name": "verificationFee",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {"name": "fee", "type": "uint256"}
    ]
  }
]`
