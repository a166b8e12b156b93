package store

import "database/sql"

// migrate runs all database migrations. Statements are kept to the subset
// shared by SQLite and PostgreSQL.
func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS athlete_profile (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			age INTEGER NOT NULL DEFAULT 0,
			sex TEXT NOT NULL DEFAULT '',
			weight_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
			easy_pace DOUBLE PRECISION NOT NULL DEFAULT 0,
			tempo_pace DOUBLE PRECISION NOT NULL DEFAULT 0,
			interval_pace DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_hr DOUBLE PRECISION NOT NULL DEFAULT 0,
			threshold_hr DOUBLE PRECISION NOT NULL DEFAULT 0,
			aerobic_hr DOUBLE PRECISION NOT NULL DEFAULT 0,
			resting_hr DOUBLE PRECISION NOT NULL DEFAULT 0,
			weekly_volume_km DOUBLE PRECISION NOT NULL DEFAULT 0,
			longest_run_km DOUBLE PRECISION NOT NULL DEFAULT 0,
			phase TEXT NOT NULL,
			week_number INTEGER NOT NULL DEFAULT 1,
			strava_athlete_id BIGINT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_athlete_profile_strava ON athlete_profile(strava_athlete_id)`,

		// Activities are immutable once written
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			provider TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			utc_offset INTEGER NOT NULL DEFAULT 0,
			timezone TEXT,
			distance DOUBLE PRECISION NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			total_elevation_gain DOUBLE PRECISION,
			average_speed DOUBLE PRECISION,
			average_heartrate DOUBLE PRECISION,
			max_heartrate DOUBLE PRECISION,
			average_cadence DOUBLE PRECISION,
			suffer_score INTEGER,
			splits TEXT,
			workout_type TEXT NOT NULL,
			notes TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_athlete_start ON activities(athlete_id, start_date)`,

		`CREATE TABLE IF NOT EXISTS aisri_scores (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			computed_at TEXT NOT NULL,
			overall INTEGER NOT NULL,
			adaptability INTEGER NOT NULL,
			injury_risk INTEGER NOT NULL,
			fatigue INTEGER NOT NULL,
			recovery INTEGER NOT NULL,
			intensity INTEGER NOT NULL,
			consistency INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			method TEXT NOT NULL,
			activities_analysed INTEGER NOT NULL,
			notes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aisri_athlete_computed ON aisri_scores(athlete_id, computed_at)`,

		`CREATE TABLE IF NOT EXISTS injury_risk_predictions (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			computed_at TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			acute_load DOUBLE PRECISION NOT NULL,
			chronic_load DOUBLE PRECISION NOT NULL,
			acwr DOUBLE PRECISION NOT NULL,
			aisri_trend INTEGER NOT NULL,
			factors TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_injury_athlete_computed ON injury_risk_predictions(athlete_id, computed_at)`,

		`CREATE TABLE IF NOT EXISTS readiness_assessments (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			assessed_at TEXT NOT NULL,
			strength INTEGER NOT NULL,
			mobility INTEGER NOT NULL,
			range_of_motion INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_athlete ON readiness_assessments(athlete_id, assessed_at)`,

		`CREATE TABLE IF NOT EXISTS workout_assignments (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			scheduled_date TEXT NOT NULL,
			status TEXT NOT NULL,
			workout_type TEXT NOT NULL,
			prescription TEXT NOT NULL,
			expected_load DOUBLE PRECISION NOT NULL,
			rationale TEXT NOT NULL,
			completion_notes TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_athlete_date ON workout_assignments(athlete_id, scheduled_date)`,

		`CREATE TABLE IF NOT EXISTS workout_results (
			id TEXT PRIMARY KEY,
			assignment_id TEXT REFERENCES workout_assignments(id),
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			source_activity_id TEXT NOT NULL,
			distance_km DOUBLE PRECISION NOT NULL,
			duration_seconds INTEGER NOT NULL,
			avg_pace DOUBLE PRECISION NOT NULL,
			avg_hr DOUBLE PRECISION,
			max_hr DOUBLE PRECISION,
			splits TEXT,
			completed_full INTEGER NOT NULL,
			stopped_at_km DOUBLE PRECISION,
			label TEXT NOT NULL,
			distance_score DOUBLE PRECISION NOT NULL,
			pace_score DOUBLE PRECISION NOT NULL,
			hr_score DOUBLE PRECISION NOT NULL,
			overall_score DOUBLE PRECISION NOT NULL,
			ability_change DOUBLE PRECISION NOT NULL,
			ready_for_progression INTEGER NOT NULL,
			fatigue TEXT NOT NULL,
			injury_indicators TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_results_source ON workout_results(source_activity_id)`,

		`CREATE TABLE IF NOT EXISTS ability_progression (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			result_id TEXT NOT NULL REFERENCES workout_results(id),
			delta DOUBLE PRECISION NOT NULL,
			snapshot TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progressions_athlete ON ability_progression(athlete_id, created_at)`,

		// OAuth tokens per athlete and provider
		`CREATE TABLE IF NOT EXISTS provider_tokens (
			athlete_id TEXT NOT NULL REFERENCES athlete_profile(id),
			provider TEXT NOT NULL,
			provider_id BIGINT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at BIGINT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (athlete_id, provider)
		)`,

		// Key-value store for sync metadata
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
