// Package strategy holds the allocation policies as pure decision
// functions. They never touch the network: the scheduler feeds them fresh
// balances and signals, then executes whatever comes back. Every outcome,
// including a no-op, carries a reason string.
package strategy

// Action is what a policy wants done this cycle.
type Action string

const (
	ActionNone     Action = "none"
	ActionBuy      Action = "buy"
	ActionSell     Action = "sell"
	ActionTransfer Action = "transfer"
	ActionWithdraw Action = "withdraw"
)

// Decision is a policy outcome. Amount units depend on the action: base
// asset quantity for buy/sell/withdraw, quote currency for transfer.
type Decision struct {
	Action Action
	Amount float64
	Reason string
}

func hold(reason string) Decision {
	return Decision{Action: ActionNone, Reason: reason}
}
