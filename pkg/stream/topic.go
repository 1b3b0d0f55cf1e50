package stream

// Topic describes one subscription: the command frames sent after connecting
// and the event tags the caller wants back.
type Topic struct {
	// Channel names the subscription in logs and metrics.
	Channel  string
	Commands [][]any
	Allow    []string
}

// Quotes subscribes to quote updates for the given tickers.
func Quotes(symbols ...string) Topic {
	return Topic{
		Channel:  "quotes",
		Commands: [][]any{{"quotes", append([]string{}, symbols...)}},
		Allow:    []string{"q", "error"},
	}
}

// MarketDepth subscribes to order book updates for one ticker.
func MarketDepth(symbol string) Topic {
	return Topic{
		Channel:  "orderBook",
		Commands: [][]any{{"orderBook", []string{symbol}}},
		Allow:    []string{"b", "error"},
	}
}

// Portfolio subscribes to portfolio updates.
func Portfolio() Topic {
	return Topic{Channel: "portfolio", Commands: [][]any{{"portfolio"}}, Allow: []string{"portfolio", "error"}}
}

// Orders subscribes to active order updates.
func Orders() Topic {
	return Topic{Channel: "orders", Commands: [][]any{{"orders"}}, Allow: []string{"orders", "error"}}
}

// Markets subscribes to market status updates.
func Markets() Topic {
	return Topic{Channel: "markets", Commands: [][]any{{"markets"}}, Allow: []string{"markets", "error"}}
}
