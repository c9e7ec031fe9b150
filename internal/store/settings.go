package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	// Try to generate and insert first (safe against races).
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// LoanPolicy holds the configurable loan lifecycle rules.
type LoanPolicy struct {
	// AllowPastDates permits loan requests whose start date lies before
	// today. Off by default.
	AllowPastDates bool

	// LenderCancelActive permits the lender to unilaterally cancel an
	// active loan (the dispute path). On by default.
	LenderCancelActive bool
}

// Setting keys for the loan policy.
const (
	settingAllowPastDates     = "loan_allow_past_dates"
	settingLenderCancelActive = "loan_lender_cancel_active"
)

// GetLoanPolicy reads the loan policy, falling back to defaults for unset
// keys.
func GetLoanPolicy(ctx context.Context, db *sql.DB) (LoanPolicy, error) {
	policy := LoanPolicy{
		AllowPastDates:     false,
		LenderCancelActive: true,
	}

	rows, err := db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key IN (?, ?)`,
		settingAllowPastDates, settingLenderCancelActive,
	)
	if err != nil {
		return policy, fmt.Errorf("reading loan policy: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return policy, fmt.Errorf("scanning loan policy: %w", err)
		}
		switch key {
		case settingAllowPastDates:
			policy.AllowPastDates = value == "true"
		case settingLenderCancelActive:
			policy.LenderCancelActive = value == "true"
		}
	}
	return policy, rows.Err()
}

// SetLoanPolicy persists the loan policy.
func SetLoanPolicy(ctx context.Context, db *sql.DB, policy LoanPolicy) error {
	for key, on := range map[string]bool{
		settingAllowPastDates:     policy.AllowPastDates,
		settingLenderCancelActive: policy.LenderCancelActive,
	} {
		value := "false"
		if on {
			value = "true"
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}
	}
	return nil
}
