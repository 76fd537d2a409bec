package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/settle/internal/account"
)

// marshalUpdate returns the update's wire JSON and content fingerprint.
func marshalUpdate(u account.Update) (payload, hash string, err error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", "", fmt.Errorf("marshal update %s: %w", u.ID, err)
	}
	hash, err = account.Fingerprint(u)
	if err != nil {
		return "", "", fmt.Errorf("fingerprint update %s: %w", u.ID, err)
	}
	return string(data), hash, nil
}

func unmarshalUpdate(payload string) (account.Update, error) {
	var u account.Update
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return account.Update{}, fmt.Errorf("unmarshal update: %w", err)
	}
	return u, nil
}

// versionArg maps an unset version to SQL NULL.
func versionArg(v account.Version) any {
	if !v.IsSet() {
		return nil
	}
	return v.Value()
}

func versionFromNull(n sql.NullInt64) account.Version {
	if !n.Valid {
		return account.NoVersion
	}
	return account.V(n.Int64)
}
