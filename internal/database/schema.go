package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS enrollments (
		id                        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		slug                      VARCHAR(191) NOT NULL,
		user_id                   VARCHAR(191) NOT NULL,
		product_id                VARCHAR(64)  NOT NULL,
		access_level              VARCHAR(32)  NOT NULL,
		purchased_at              DATETIME     NOT NULL,
		lemon_squeezy_customer_id VARCHAR(64)  NULL,
		lemon_squeezy_order_id    VARCHAR(64)  NULL,
		email_domain              VARCHAR(191) NULL,
		status                    VARCHAR(16)  NOT NULL DEFAULT 'active',
		is_temporary              TINYINT(1)   NOT NULL DEFAULT 0,
		temporary_source          VARCHAR(32)  NULL,
		expires_at                DATETIME     NULL,
		created_at                DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_enrollments_slug (slug),
		UNIQUE KEY uq_enrollments_order (lemon_squeezy_order_id),
		KEY idx_enrollments_user (user_id, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS temporary_access_codes (
		code            VARCHAR(32)  NOT NULL PRIMARY KEY,
		access_level    VARCHAR(32)  NOT NULL,
		expires_at      DATETIME     NOT NULL,
		max_redemptions INT          NULL,
		status          VARCHAR(16)  NOT NULL DEFAULT 'active',
		created_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_codes_expiry (status, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS temporary_access_redemptions (
		code          VARCHAR(32)     NOT NULL,
		user_id       VARCHAR(191)    NOT NULL,
		enrollment_id BIGINT UNSIGNED NOT NULL,
		redeemed_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (code, user_id),
		CONSTRAINT fk_redemptions_code FOREIGN KEY (code) REFERENCES temporary_access_codes (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS redemption_locks (
		user_id   VARCHAR(191) NOT NULL PRIMARY KEY,
		locked_at DATETIME     NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS certificates (
		id                       BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		slug                     VARCHAR(191) NOT NULL,
		title                    VARCHAR(255) NOT NULL,
		user_id                  VARCHAR(191) NOT NULL,
		user_name                VARCHAR(191) NOT NULL,
		user_email               VARCHAR(191) NOT NULL,
		platform                 VARCHAR(16)  NOT NULL,
		track                    VARCHAR(16)  NOT NULL DEFAULT '',
		certificate_number       VARCHAR(64)  NOT NULL,
		issued_at                DATETIME     NOT NULL,
		design_completed_at      DATETIME     NULL,
		engineering_completed_at DATETIME     NULL,
		convergence_completed_at DATETIME     NULL,
		completed_at             DATETIME     NULL,
		total_time_spent_seconds BIGINT       NOT NULL DEFAULT 0,
		UNIQUE KEY uq_certificates_slug (slug),
		UNIQUE KEY uq_certificates_user_platform_track (user_id, platform, track)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS course_lessons (
		path     VARCHAR(191) NOT NULL PRIMARY KEY,
		title    VARCHAR(255) NOT NULL DEFAULT '',
		track    VARCHAR(16)  NOT NULL,
		platform VARCHAR(16)  NOT NULL DEFAULT '',
		position INT          NOT NULL DEFAULT 0,
		KEY idx_lessons_track (track, platform, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS lesson_progress (
		user_id            VARCHAR(191) NOT NULL,
		lesson_path        VARCHAR(191) NOT NULL,
		status             VARCHAR(16)  NOT NULL,
		time_spent_seconds BIGINT       NOT NULL DEFAULT 0,
		started_at         DATETIME     NULL,
		completed_at       DATETIME     NULL,
		updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, lesson_path)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
