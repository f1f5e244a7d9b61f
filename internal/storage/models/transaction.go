package models

// Swap is one swap attempt keyed by its broadcast signature. Amounts
// are base units; a timed-out swap keeps its signature with a
// non-terminal status until a follow-up check settles it.
type Swap struct {
	BaseModel
	Signature     string `gorm:"unique;not null;type:varchar(88)"`
	WalletAddress string `gorm:"index;not null;type:varchar(44)"`
	Venue         string `gorm:"not null;type:varchar(50)"`
	InputMint     string `gorm:"not null;type:varchar(44)"`
	OutputMint    string `gorm:"not null;type:varchar(44)"`
	AmountIn      uint64 `gorm:"not null"`
	AmountOut     uint64
	SlippageBps   uint64
	Status        string  `gorm:"not null;type:varchar(20)"`
	ErrorMessage  string  `gorm:"type:text"`
	ExecutionSecs float64 `gorm:"type:decimal(10,3)"`
}

// FeeTransfer is a service-fee transfer linked to the swap that
// produced it. A failed or declined fee row never changes the linked
// swap's status.
type FeeTransfer struct {
	BaseModel
	SwapSignature string `gorm:"index;not null;type:varchar(88)"`
	Signature     string `gorm:"type:varchar(88)"`
	Recipient     string `gorm:"not null;type:varchar(44)"`
	Amount        uint64 `gorm:"not null"`
	Status        string `gorm:"not null;type:varchar(20)"`
	ErrorMessage  string `gorm:"type:text"`
}
