package raydium

// computeResponse wraps the compute/swap-base-in reply. Data is a
// route array; the first element carries the aggregate amounts for
// the whole route.
type computeResponse struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Version string      `json:"version"`
	Msg     string      `json:"msg,omitempty"`
	Data    []RouteStep `json:"data"`
}

type RouteStep struct {
	SwapType             string `json:"swapType"`
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InputAmount          string `json:"inputAmount"`
	OutputAmount         string `json:"outputAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          uint64 `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
}

type transactionRequest struct {
	ComputeUnitPriceMicroLamports string      `json:"computeUnitPriceMicroLamports"`
	SwapResponse                  []RouteStep `json:"swapResponse"`
	TxVersion                     string      `json:"txVersion"`
	Wallet                        string      `json:"wallet"`
	WrapSol                       bool        `json:"wrapSol"`
	UnwrapSol                     bool        `json:"unwrapSol"`
}

type transactionResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
	Data    []struct {
		Transaction string `json:"transaction"`
	} `json:"data"`
}
