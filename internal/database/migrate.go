package database

import (
	"context"
	"database/sql"
)

// statements create the schema used by the allocation core. They are
// idempotent so the server can run them on every start. InnoDB is
// required: row-level locking (SELECT ... FOR UPDATE) is what makes
// the spot check-and-flip atomic under concurrent reservations.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username      VARCHAR(80)  NOT NULL,
		password_hash VARCHAR(200) NOT NULL,
		role          VARCHAR(20)  NOT NULL DEFAULT 'user',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS lots (
		id                   BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name                 VARCHAR(100) NOT NULL,
		address              VARCHAR(200) NOT NULL,
		pin_code             VARCHAR(10)  NOT NULL,
		price_cents_per_hour INT UNSIGNED NOT NULL,
		number_of_spots      INT UNSIGNED NOT NULL,
		created_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS spots (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		lot_id      BIGINT UNSIGNED NOT NULL,
		spot_number INT UNSIGNED NOT NULL,
		status      ENUM('available','occupied') NOT NULL DEFAULT 'available',
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_spots_lot_number (lot_id, spot_number),
		KEY ix_spots_lot_status (lot_id, status),
		CONSTRAINT fk_spots_lot FOREIGN KEY (lot_id) REFERENCES lots (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		spot_id    BIGINT UNSIGNED NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at   DATETIME NULL,
		cost_cents BIGINT NULL,
		PRIMARY KEY (id),
		KEY ix_reservations_user_open (user_id, ended_at),
		KEY ix_reservations_spot (spot_id),
		CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_reservations_spot FOREIGN KEY (spot_id) REFERENCES spots (id)
	) ENGINE=InnoDB`,
}

// Migrate creates all tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
