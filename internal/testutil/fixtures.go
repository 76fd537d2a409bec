package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/settle/internal/account"
)

// MockUpdate returns a fresh baseline update: id "id", category "type",
// one token, version 1, settling after 10ms.
func MockUpdate() account.Update {
	return account.Update{
		ID:           "id",
		Type:         "type",
		Tokens:       decimal.NewFromInt(1),
		Version:      account.V(1),
		CallbackTime: 10 * time.Millisecond,
		Data:         map[string]any{},
	}
}

// UpdateWith returns MockUpdate modified by fn.
func UpdateWith(fn func(u *account.Update)) account.Update {
	u := MockUpdate()
	fn(&u)
	return u
}
