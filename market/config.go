package market

type Configuration struct {
	Account        string
	FeeRecipient   string
	FeeBasisPoints int64
}
