package market

// Direction is the side of a trade idea.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)
