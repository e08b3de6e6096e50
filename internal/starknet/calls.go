package starknet

// Call is a single contract invocation inside a multicall transaction.
// Calldata entries are felts encoded as strings: hex addresses stay as-is,
// numeric values are decimal.
type Call struct {
	ContractAddress string   `json:"contract_address"`
	EntryPoint      string   `json:"entry_point"`
	Calldata        []string `json:"calldata"`
}

// Asset describes what is being deposited: the amount and the token contract
// it is denominated in.
type Asset struct {
	Amount Uint256
	Token  string
}

// ApproveCall authorizes spender to transfer amount of the token from the
// caller's balance.
func ApproveCall(token, spender string, amount Uint256) Call {
	return Call{
		ContractAddress: token,
		EntryPoint:      "approve",
		Calldata:        []string{spender, amount.Low, amount.High},
	}
}

// DepositCall commits the claim secret and the asset descriptor to the
// chamber. The deposit becomes claimable by whoever presents the secret.
func DepositCall(chamber, secret string, asset Asset) Call {
	return Call{
		ContractAddress: chamber,
		EntryPoint:      "deposit",
		Calldata:        []string{secret, asset.Amount.Low, asset.Amount.High, asset.Token},
	}
}
