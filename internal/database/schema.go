package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL for all tables, applied idempotently at startup.
//
// accounts.created_by and hotels.created_by are ON DELETE SET NULL: deleting a
// creator orphans their rows instead of cascading. account_hotels is the
// many-to-many membership table. The utf8mb4 general collation makes the
// hotels.name unique index case-insensitive, backing the application-level
// duplicate check. refresh_tokens stores only the SHA-256 hash of each token;
// a non-NULL revoked_at is the blacklisted state.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username VARCHAR(150) NOT NULL,
		email VARCHAR(254) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		image VARCHAR(500) NOT NULL DEFAULT '',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		is_staff TINYINT(1) NOT NULL DEFAULT 0,
		is_superuser TINYINT(1) NOT NULL DEFAULT 0,
		is_email_verified TINYINT(1) NOT NULL DEFAULT 0,
		created_by BIGINT UNSIGNED NULL,
		last_login DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_accounts_username (username),
		UNIQUE KEY uq_accounts_email (email),
		KEY idx_accounts_created_by (created_by),
		CONSTRAINT fk_accounts_created_by FOREIGN KEY (created_by)
			REFERENCES accounts (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci`,

	`CREATE TABLE IF NOT EXISTS hotels (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		address TEXT NOT NULL,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		website VARCHAR(500) NOT NULL DEFAULT '',
		image VARCHAR(500) NOT NULL DEFAULT '',
		cover VARCHAR(500) NOT NULL DEFAULT '',
		note TEXT NOT NULL,
		active_until DATETIME NULL,
		social_links JSON NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_by BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_hotels_name (name),
		KEY idx_hotels_created_by (created_by),
		CONSTRAINT fk_hotels_created_by FOREIGN KEY (created_by)
			REFERENCES accounts (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci`,

	`CREATE TABLE IF NOT EXISTS account_hotels (
		account_id BIGINT UNSIGNED NOT NULL,
		hotel_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (account_id, hotel_id),
		CONSTRAINT fk_ah_account FOREIGN KEY (account_id)
			REFERENCES accounts (id) ON DELETE CASCADE,
		CONSTRAINT fk_ah_hotel FOREIGN KEY (hotel_id)
			REFERENCES hotels (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id)
			REFERENCES accounts (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
