package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "talentlens_user")
	password := getEnv("DB_PASSWORD", "talentlens_password")
	dbname := getEnv("DB_NAME", "talentlens")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- Catalog tables: owned by the content layer, read-only for this engine.

	CREATE TABLE IF NOT EXISTS competencies (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		trait       VARCHAR(30) NOT NULL,
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_competencies_trait ON competencies(trait);

	CREATE TABLE IF NOT EXISTS questions (
		id                BIGSERIAL PRIMARY KEY,
		competency_id     BIGINT NOT NULL REFERENCES competencies(id),
		question_type     VARCHAR(20) NOT NULL DEFAULT 'choice',
		correct_option_id VARCHAR(10),
		created_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_competency ON questions(competency_id);

	CREATE TABLE IF NOT EXISTS question_options (
		id          BIGSERIAL PRIMARY KEY,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		option_id   VARCHAR(10) NOT NULL,
		option_text TEXT NOT NULL,
		UNIQUE(question_id, option_id)
	);

	CREATE TABLE IF NOT EXISTS question_responses (
		id          BIGSERIAL PRIMARY KEY,
		session_id  VARCHAR(64) NOT NULL,
		question_id BIGINT NOT NULL REFERENCES questions(id),
		score       DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 1),
		option_id   VARCHAR(10),
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_responses_question ON question_responses(question_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_responses_session ON question_responses(session_id);

	-- Engine-owned tables.

	CREATE TABLE IF NOT EXISTS item_statistics (
		id                             BIGSERIAL PRIMARY KEY,
		question_id                    BIGINT NOT NULL UNIQUE REFERENCES questions(id),
		response_count                 INT NOT NULL DEFAULT 0,
		difficulty_index               NUMERIC(6,4),
		discrimination_index           NUMERIC(6,4),
		previous_discrimination_index  NUMERIC(6,4),
		validity_status                VARCHAR(30) NOT NULL DEFAULT 'probation',
		difficulty_flag                VARCHAR(20) NOT NULL DEFAULT 'none',
		discrimination_flag            VARCHAR(20) NOT NULL DEFAULT 'none',
		irt_discrimination             NUMERIC(8,4),
		irt_difficulty                 NUMERIC(8,4),
		irt_guessing                   NUMERIC(8,4),
		version                        BIGINT NOT NULL DEFAULT 1,
		last_calculated_at             TIMESTAMP WITH TIME ZONE,
		created_at                     TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at                     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_item_stats_status ON item_statistics(validity_status);

	CREATE TABLE IF NOT EXISTS item_status_history (
		id          BIGSERIAL PRIMARY KEY,
		question_id BIGINT NOT NULL REFERENCES questions(id),
		from_status VARCHAR(30) NOT NULL,
		to_status   VARCHAR(30) NOT NULL,
		reason      TEXT NOT NULL,
		changed_by  BIGINT REFERENCES users(id),
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_status_history_question ON item_status_history(question_id, created_at);

	CREATE TABLE IF NOT EXISTS distractor_stats (
		id             BIGSERIAL PRIMARY KEY,
		question_id    BIGINT NOT NULL REFERENCES questions(id),
		option_id      VARCHAR(10) NOT NULL,
		selection_rate DOUBLE PRECISION NOT NULL,
		calculated_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(question_id, option_id)
	);

	CREATE TABLE IF NOT EXISTS competency_reliability (
		id                 BIGSERIAL PRIMARY KEY,
		competency_id      BIGINT NOT NULL UNIQUE REFERENCES competencies(id),
		cronbach_alpha     NUMERIC(6,4),
		sample_size        INT NOT NULL DEFAULT 0,
		item_count         INT NOT NULL DEFAULT 0,
		reliability_status VARCHAR(30) NOT NULL DEFAULT 'insufficient_data',
		last_calculated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS competency_alpha_if_deleted (
		competency_id  BIGINT NOT NULL REFERENCES competencies(id),
		question_id    BIGINT NOT NULL REFERENCES questions(id),
		alpha          NUMERIC(6,4) NOT NULL,
		PRIMARY KEY(competency_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS big_five_reliability (
		id                        BIGSERIAL PRIMARY KEY,
		trait                     VARCHAR(30) NOT NULL UNIQUE,
		cronbach_alpha            NUMERIC(6,4),
		sample_size               INT NOT NULL DEFAULT 0,
		total_items               INT NOT NULL DEFAULT 0,
		contributing_competencies INT NOT NULL DEFAULT 0,
		reliability_status        VARCHAR(30) NOT NULL DEFAULT 'insufficient_data',
		last_calculated_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS trait_alpha_if_deleted (
		trait        VARCHAR(30) NOT NULL,
		question_id  BIGINT NOT NULL REFERENCES questions(id),
		alpha        NUMERIC(6,4) NOT NULL,
		PRIMARY KEY(trait, question_id)
	);

	CREATE TABLE IF NOT EXISTS audit_runs (
		id                        UUID PRIMARY KEY,
		trigger_type              VARCHAR(20) NOT NULL,
		items_recalculated        INT NOT NULL DEFAULT 0,
		items_skipped             INT NOT NULL DEFAULT 0,
		competencies_calibrated   INT NOT NULL DEFAULT 0,
		reliability_recalculated  INT NOT NULL DEFAULT 0,
		traits_recalculated       INT NOT NULL DEFAULT 0,
		failures                  INT NOT NULL DEFAULT 0,
		started_at                TIMESTAMP WITH TIME ZONE NOT NULL,
		completed_at              TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_audit_runs_started ON audit_runs(started_at DESC);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
