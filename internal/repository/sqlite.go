package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/abarnes/kudos/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT,
			role TEXT NOT NULL,
			team_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cycles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			start_at DATETIME NOT NULL,
			end_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			created_by TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (created_by) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS criteria (
			id TEXT PRIMARY KEY,
			cycle_id TEXT NOT NULL,
			name TEXT NOT NULL,
			weight REAL NOT NULL CHECK (weight >= 0),
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT 1,
			config TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE CASCADE,
			UNIQUE(cycle_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS nominations (
			id TEXT PRIMARY KEY,
			cycle_id TEXT NOT NULL,
			nominee_id TEXT NOT NULL,
			team_id TEXT,
			submitted_by TEXT NOT NULL,
			submitted_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			FOREIGN KEY (cycle_id) REFERENCES cycles(id),
			FOREIGN KEY (nominee_id) REFERENCES users(id),
			FOREIGN KEY (submitted_by) REFERENCES users(id),
			UNIQUE(cycle_id, nominee_id, submitted_by)
		)`,
		`CREATE TABLE IF NOT EXISTS nomination_scores (
			id TEXT PRIMARY KEY,
			nomination_id TEXT NOT NULL,
			criterion_id TEXT NOT NULL,
			score INTEGER,
			answer TEXT,
			comment TEXT,
			FOREIGN KEY (nomination_id) REFERENCES nominations(id) ON DELETE CASCADE,
			FOREIGN KEY (criterion_id) REFERENCES criteria(id),
			UNIQUE(nomination_id, criterion_id)
		)`,
		`CREATE TABLE IF NOT EXISTS approvals (
			id TEXT PRIMARY KEY,
			nomination_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			reason TEXT,
			rating REAL,
			acted_at DATETIME NOT NULL,
			FOREIGN KEY (nomination_id) REFERENCES nominations(id) ON DELETE CASCADE,
			FOREIGN KEY (actor_id) REFERENCES users(id),
			UNIQUE(nomination_id, actor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS approval_reviews (
			id TEXT PRIMARY KEY,
			approval_id TEXT NOT NULL,
			criterion_id TEXT NOT NULL,
			rating REAL NOT NULL,
			comment TEXT,
			FOREIGN KEY (approval_id) REFERENCES approvals(id) ON DELETE CASCADE,
			FOREIGN KEY (criterion_id) REFERENCES criteria(id)
		)`,
		`CREATE TABLE IF NOT EXISTS rankings (
			id TEXT PRIMARY KEY,
			cycle_id TEXT NOT NULL,
			team_id TEXT,
			nominee_id TEXT NOT NULL,
			total_score REAL NOT NULL,
			rank INTEGER NOT NULL,
			computed_at DATETIME NOT NULL,
			FOREIGN KEY (cycle_id) REFERENCES cycles(id)
		)`,
		`CREATE TABLE IF NOT EXISTS nominations_history (
			id TEXT PRIMARY KEY,
			nomination_id TEXT NOT NULL,
			cycle_id TEXT NOT NULL,
			nominee_id TEXT NOT NULL,
			team_id TEXT,
			submitted_by TEXT NOT NULL,
			submitted_at DATETIME NOT NULL,
			status TEXT NOT NULL,
			scores TEXT,
			snapshot_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rankings_history (
			id TEXT PRIMARY KEY,
			ranking_id TEXT NOT NULL,
			cycle_id TEXT NOT NULL,
			team_id TEXT,
			nominee_id TEXT NOT NULL,
			total_score REAL NOT NULL,
			rank INTEGER NOT NULL,
			computed_at DATETIME NOT NULL,
			snapshot_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_criteria_cycle ON criteria(cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nominations_cycle ON nominations(cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nominations_cycle_team ON nominations(cycle_id, team_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_nomination ON nomination_scores(nomination_id)`,
		`CREATE INDEX IF NOT EXISTS idx_approvals_nomination ON approvals(nomination_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rankings_cycle ON rankings(cycle_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite uniqueness violation
func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// nullUUID converts an optional UUID to a driver value
func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

// scanUUID converts a nullable column back to an optional UUID
func scanUUID(ns sql.NullString) *uuid.UUID {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil
	}
	return &id
}

// ==================== Team Methods ====================

// CreateTeam creates a new team
func (r *Repository) CreateTeam(ctx context.Context, team models.Team) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO teams (id, name) VALUES (?, ?)`,
		team.ID.String(), team.Name)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ListTeams returns all teams
func (r *Repository) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var team models.Team
		var id string
		if err := rows.Scan(&id, &team.Name); err != nil {
			return nil, err
		}
		team.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// ==================== User Methods ====================

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, team_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID.String(), user.Name, user.Email, user.PasswordHash, string(user.Role), nullUUID(user.TeamID))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *Repository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var id, role string
	var passwordHash, teamID sql.NullString
	err := row.Scan(&id, &user.Name, &user.Email, &passwordHash, &role, &teamID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = passwordHash.String
	user.Role = models.Role(role)
	user.TeamID = scanUUID(teamID)
	return &user, nil
}

// GetUser returns a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, team_id FROM users WHERE id = ?`, id.String())
	return r.scanUser(row)
}

// GetUserByEmail returns a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, team_id FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

// ListUsers returns all users
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, role, team_id FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var id, role string
		var teamID sql.NullString
		if err := rows.Scan(&id, &user.Name, &user.Email, &role, &teamID); err != nil {
			return nil, err
		}
		user.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		user.Role = models.Role(role)
		user.TeamID = scanUUID(teamID)
		users = append(users, user)
	}
	return users, rows.Err()
}

// ==================== Cycle Methods ====================

// CreateCycle creates a new cycle
func (r *Repository) CreateCycle(ctx context.Context, cycle models.Cycle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cycles (id, name, start_at, end_at, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cycle.ID.String(), cycle.Name, cycle.StartAt, cycle.EndAt, string(cycle.Status), cycle.CreatedBy.String())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetCycle returns a cycle by ID
func (r *Repository) GetCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	var cycle models.Cycle
	var cycleID, status, createdBy string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, start_at, end_at, status, created_by FROM cycles WHERE id = ?
	`, id.String()).Scan(&cycleID, &cycle.Name, &cycle.StartAt, &cycle.EndAt, &status, &createdBy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cycle.ID, err = uuid.Parse(cycleID)
	if err != nil {
		return nil, err
	}
	cycle.Status = models.CycleStatus(status)
	cycle.CreatedBy, err = uuid.Parse(createdBy)
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// ListCycles returns all cycles, most recently created first
func (r *Repository) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, start_at, end_at, status, created_by
		FROM cycles ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []models.Cycle
	for rows.Next() {
		var cycle models.Cycle
		var id, status, createdBy string
		if err := rows.Scan(&id, &cycle.Name, &cycle.StartAt, &cycle.EndAt, &status, &createdBy); err != nil {
			return nil, err
		}
		cycle.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		cycle.Status = models.CycleStatus(status)
		cycle.CreatedBy, err = uuid.Parse(createdBy)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}

// UpdateCycle updates a cycle's editable fields
func (r *Repository) UpdateCycle(ctx context.Context, id uuid.UUID, name string, startAt, endAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cycles SET name = ?, start_at = ?, end_at = ? WHERE id = ?`,
		name, startAt, endAt, id.String())
	return err
}

// UpdateCycleStatus transitions a cycle's status with a guard on the current
// state so concurrent transitions cannot both succeed
func (r *Repository) UpdateCycleStatus(ctx context.Context, id uuid.UUID, from, to models.CycleStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cycles SET status = ? WHERE id = ? AND status = ?`,
		string(to), id.String(), string(from))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}

// DeleteCycle deletes a cycle and, via cascade, its criteria
func (r *Repository) DeleteCycle(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cycles WHERE id = ?`, id.String())
	return err
}

// CountNominationsForCycle returns the number of nominations in a cycle
func (r *Repository) CountNominationsForCycle(ctx context.Context, cycleID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nominations WHERE cycle_id = ?`, cycleID.String()).Scan(&count)
	return count, err
}

// ==================== Criterion Methods ====================

// AddCriteria inserts a batch of criteria in one transaction
func (r *Repository) AddCriteria(ctx context.Context, criteria []models.Criterion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, crit := range criteria {
		configJSON, err := marshalConfig(crit.Config)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO criteria (id, cycle_id, name, weight, description, active, config)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, crit.ID.String(), crit.CycleID.String(), crit.Name, crit.Weight, crit.Description, crit.Active, configJSON)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func marshalConfig(config *models.CriterionConfig) (sql.NullString, error) {
	if config == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func scanCriterion(scan func(dest ...interface{}) error) (*models.Criterion, error) {
	var crit models.Criterion
	var id, cycleID string
	var description, configJSON sql.NullString
	if err := scan(&id, &cycleID, &crit.Name, &crit.Weight, &description, &crit.Active, &configJSON); err != nil {
		return nil, err
	}
	var err error
	crit.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	crit.CycleID, err = uuid.Parse(cycleID)
	if err != nil {
		return nil, err
	}
	crit.Description = description.String
	if configJSON.Valid && configJSON.String != "" {
		var config models.CriterionConfig
		if err := json.Unmarshal([]byte(configJSON.String), &config); err != nil {
			return nil, err
		}
		crit.Config = &config
	}
	return &crit, nil
}

// GetCriterion returns a criterion by ID
func (r *Repository) GetCriterion(ctx context.Context, id uuid.UUID) (*models.Criterion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, cycle_id, name, weight, description, active, config
		FROM criteria WHERE id = ?
	`, id.String())
	crit, err := scanCriterion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return crit, err
}

// ListCriteria returns a cycle's criteria in creation order
func (r *Repository) ListCriteria(ctx context.Context, cycleID uuid.UUID, activeOnly bool) ([]models.Criterion, error) {
	query := `
		SELECT id, cycle_id, name, weight, description, active, config
		FROM criteria WHERE cycle_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, cycleID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []models.Criterion
	for rows.Next() {
		crit, err := scanCriterion(rows.Scan)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, *crit)
	}
	return criteria, rows.Err()
}

// UpdateCriterion updates a criterion
func (r *Repository) UpdateCriterion(ctx context.Context, crit models.Criterion) error {
	configJSON, err := marshalConfig(crit.Config)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE criteria SET name = ?, weight = ?, description = ?, active = ?, config = ?
		WHERE id = ?
	`, crit.Name, crit.Weight, crit.Description, crit.Active, configJSON, crit.ID.String())
	return err
}

// DeleteCriterion deletes a criterion
func (r *Repository) DeleteCriterion(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM criteria WHERE id = ?`, id.String())
	return err
}

// CountScoresForCriterion returns how many submitted scores reference a criterion
func (r *Repository) CountScoresForCriterion(ctx context.Context, criterionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nomination_scores WHERE criterion_id = ?`, criterionID.String()).Scan(&count)
	return count, err
}

// ==================== Nomination Methods ====================

// CreateNomination inserts a nomination and all its scores in one transaction
func (r *Repository) CreateNomination(ctx context.Context, nom models.Nomination) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nominations (id, cycle_id, nominee_id, team_id, submitted_by, submitted_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nom.ID.String(), nom.CycleID.String(), nom.NomineeID.String(), nullUUID(nom.TeamID),
		nom.SubmittedBy.String(), nom.SubmittedAt, string(nom.Status))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	for _, score := range nom.Scores {
		answerJSON, err := marshalAnswer(score.Answer)
		if err != nil {
			return err
		}
		var legacy sql.NullInt64
		if score.Score != nil {
			legacy = sql.NullInt64{Int64: int64(*score.Score), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO nomination_scores (id, nomination_id, criterion_id, score, answer, comment)
			VALUES (?, ?, ?, ?, ?, ?)
		`, score.ID.String(), nom.ID.String(), score.CriterionID.String(), legacy, answerJSON, score.Comment)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func marshalAnswer(answer *models.Answer) (sql.NullString, error) {
	if answer == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func scanNomination(scan func(dest ...interface{}) error) (*models.Nomination, error) {
	var nom models.Nomination
	var id, cycleID, nomineeID, submittedBy, status string
	var teamID sql.NullString
	if err := scan(&id, &cycleID, &nomineeID, &teamID, &submittedBy, &nom.SubmittedAt, &status); err != nil {
		return nil, err
	}
	var err error
	nom.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	nom.CycleID, err = uuid.Parse(cycleID)
	if err != nil {
		return nil, err
	}
	nom.NomineeID, err = uuid.Parse(nomineeID)
	if err != nil {
		return nil, err
	}
	nom.SubmittedBy, err = uuid.Parse(submittedBy)
	if err != nil {
		return nil, err
	}
	nom.TeamID = scanUUID(teamID)
	nom.Status = models.NominationStatus(status)
	return &nom, nil
}

// GetNomination returns a nomination with its scores
func (r *Repository) GetNomination(ctx context.Context, id uuid.UUID) (*models.Nomination, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, cycle_id, nominee_id, team_id, submitted_by, submitted_at, status
		FROM nominations WHERE id = ?
	`, id.String())
	nom, err := scanNomination(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	scores, err := r.listScores(ctx, []uuid.UUID{nom.ID})
	if err != nil {
		return nil, err
	}
	nom.Scores = scores[nom.ID]
	return nom, nil
}

// listScores returns scores grouped by nomination ID
func (r *Repository) listScores(ctx context.Context, nominationIDs []uuid.UUID) (map[uuid.UUID][]models.CriterionScore, error) {
	result := make(map[uuid.UUID][]models.CriterionScore)
	for _, nomID := range nominationIDs {
		rows, err := r.db.QueryContext(ctx, `
			SELECT id, nomination_id, criterion_id, score, answer, comment
			FROM nomination_scores WHERE nomination_id = ?
		`, nomID.String())
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var score models.CriterionScore
			var id, nominationID, criterionID string
			var legacy sql.NullInt64
			var answerJSON, comment sql.NullString
			if err := rows.Scan(&id, &nominationID, &criterionID, &legacy, &answerJSON, &comment); err != nil {
				rows.Close()
				return nil, err
			}
			score.ID, err = uuid.Parse(id)
			if err != nil {
				rows.Close()
				return nil, err
			}
			score.NominationID, err = uuid.Parse(nominationID)
			if err != nil {
				rows.Close()
				return nil, err
			}
			score.CriterionID, err = uuid.Parse(criterionID)
			if err != nil {
				rows.Close()
				return nil, err
			}
			if legacy.Valid {
				v := int(legacy.Int64)
				score.Score = &v
			}
			if answerJSON.Valid && answerJSON.String != "" {
				var answer models.Answer
				if err := json.Unmarshal([]byte(answerJSON.String), &answer); err != nil {
					rows.Close()
					return nil, err
				}
				score.Answer = &answer
			}
			score.Comment = comment.String
			result[nomID] = append(result[nomID], score)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return result, nil
}

// ListNominations returns nominations matching the filter, newest first
func (r *Repository) ListNominations(ctx context.Context, filter NominationFilter) ([]models.Nomination, error) {
	query := `
		SELECT id, cycle_id, nominee_id, team_id, submitted_by, submitted_at, status
		FROM nominations WHERE 1=1`
	var args []interface{}
	if filter.CycleID != nil {
		query += ` AND cycle_id = ?`
		args = append(args, filter.CycleID.String())
	}
	if filter.NomineeID != nil {
		query += ` AND nominee_id = ?`
		args = append(args, filter.NomineeID.String())
	}
	if filter.SubmittedBy != nil {
		query += ` AND submitted_by = ?`
		args = append(args, filter.SubmittedBy.String())
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nominations []models.Nomination
	for rows.Next() {
		nom, err := scanNomination(rows.Scan)
		if err != nil {
			return nil, err
		}
		nominations = append(nominations, *nom)
	}
	return nominations, rows.Err()
}

// ListApprovedNominations returns APPROVED nominations for a cycle with
// their scores populated, optionally restricted to one team
func (r *Repository) ListApprovedNominations(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Nomination, error) {
	status := models.NominationApproved
	return r.listCycleNominationsWithScores(ctx, cycleID, &status, teamID)
}

// ListCycleNominations returns every nomination of a cycle regardless of
// status, with scores populated
func (r *Repository) ListCycleNominations(ctx context.Context, cycleID uuid.UUID) ([]models.Nomination, error) {
	return r.listCycleNominationsWithScores(ctx, cycleID, nil, nil)
}

func (r *Repository) listCycleNominationsWithScores(ctx context.Context, cycleID uuid.UUID, status *models.NominationStatus, teamID *uuid.UUID) ([]models.Nomination, error) {
	query := `
		SELECT id, cycle_id, nominee_id, team_id, submitted_by, submitted_at, status
		FROM nominations WHERE cycle_id = ?`
	args := []interface{}{cycleID.String()}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	if teamID != nil {
		query += ` AND team_id = ?`
		args = append(args, teamID.String())
	}
	query += ` ORDER BY submitted_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nominations []models.Nomination
	var ids []uuid.UUID
	for rows.Next() {
		nom, err := scanNomination(rows.Scan)
		if err != nil {
			return nil, err
		}
		nominations = append(nominations, *nom)
		ids = append(ids, nom.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scores, err := r.listScores(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range nominations {
		nominations[i].Scores = scores[nominations[i].ID]
	}
	return nominations, nil
}

// SetNominationStatus transitions a nomination out of PENDING with a guard so
// concurrent decisions cannot both succeed
func (r *Repository) SetNominationStatus(ctx context.Context, id uuid.UUID, to models.NominationStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE nominations SET status = ? WHERE id = ? AND status = ?`,
		string(to), id.String(), string(models.NominationPending))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}

// ==================== Approval Methods ====================

// CreateApproval inserts an approval and its per-criterion reviews in one transaction
func (r *Repository) CreateApproval(ctx context.Context, approval models.Approval, reviews []models.CriterionReview) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rating sql.NullFloat64
	if approval.Rating != nil {
		rating = sql.NullFloat64{Float64: *approval.Rating, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO approvals (id, nomination_id, actor_id, action, reason, rating, acted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, approval.ID.String(), approval.NominationID.String(), approval.ActorID.String(),
		string(approval.Action), approval.Reason, rating, approval.ActedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	for _, review := range reviews {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO approval_reviews (id, approval_id, criterion_id, rating, comment)
			VALUES (?, ?, ?, ?, ?)
		`, uuid.New().String(), approval.ID.String(), review.CriterionID.String(), review.Rating, review.Comment)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListApprovals returns a nomination's approvals in decision order
func (r *Repository) ListApprovals(ctx context.Context, nominationID uuid.UUID) ([]models.Approval, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nomination_id, actor_id, action, reason, rating, acted_at
		FROM approvals WHERE nomination_id = ? ORDER BY acted_at
	`, nominationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []models.Approval
	for rows.Next() {
		var approval models.Approval
		var id, nomID, actorID, action string
		var reason sql.NullString
		var rating sql.NullFloat64
		if err := rows.Scan(&id, &nomID, &actorID, &action, &reason, &rating, &approval.ActedAt); err != nil {
			return nil, err
		}
		approval.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		approval.NominationID, err = uuid.Parse(nomID)
		if err != nil {
			return nil, err
		}
		approval.ActorID, err = uuid.Parse(actorID)
		if err != nil {
			return nil, err
		}
		approval.Action = models.ApprovalAction(action)
		approval.Reason = reason.String
		if rating.Valid {
			v := rating.Float64
			approval.Rating = &v
		}
		approvals = append(approvals, approval)
	}
	return approvals, rows.Err()
}

// ==================== Ranking Methods ====================

func insertRanking(ctx context.Context, tx *sql.Tx, ranking models.Ranking) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rankings (id, cycle_id, team_id, nominee_id, total_score, rank, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ranking.ID.String(), ranking.CycleID.String(), nullUUID(ranking.TeamID),
		ranking.NomineeID.String(), ranking.TotalScore, ranking.Rank, ranking.ComputedAt)
	return err
}

func deleteRankings(ctx context.Context, tx *sql.Tx, cycleID uuid.UUID, teamID *uuid.UUID) error {
	if teamID != nil {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM rankings WHERE cycle_id = ? AND team_id = ?`,
			cycleID.String(), teamID.String())
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM rankings WHERE cycle_id = ?`, cycleID.String())
	return err
}

// ReplaceRankings atomically replaces the ranking rows for a (cycle, team-scope)
func (r *Repository) ReplaceRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID, rankings []models.Ranking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteRankings(ctx, tx, cycleID, teamID); err != nil {
		return err
	}
	for _, ranking := range rankings {
		if err := insertRanking(ctx, tx, ranking); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRankings returns a cycle's persisted rankings ordered by rank
func (r *Repository) ListRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error) {
	query := `
		SELECT id, cycle_id, team_id, nominee_id, total_score, rank, computed_at
		FROM rankings WHERE cycle_id = ?`
	args := []interface{}{cycleID.String()}
	if teamID != nil {
		query += ` AND team_id = ?`
		args = append(args, teamID.String())
	}
	query += ` ORDER BY rank, total_score DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rankings []models.Ranking
	for rows.Next() {
		ranking, err := scanRanking(rows.Scan)
		if err != nil {
			return nil, err
		}
		rankings = append(rankings, *ranking)
	}
	return rankings, rows.Err()
}

func scanRanking(scan func(dest ...interface{}) error) (*models.Ranking, error) {
	var ranking models.Ranking
	var id, cycleID, nomineeID string
	var teamID sql.NullString
	if err := scan(&id, &cycleID, &teamID, &nomineeID, &ranking.TotalScore, &ranking.Rank, &ranking.ComputedAt); err != nil {
		return nil, err
	}
	var err error
	ranking.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	ranking.CycleID, err = uuid.Parse(cycleID)
	if err != nil {
		return nil, err
	}
	ranking.NomineeID, err = uuid.Parse(nomineeID)
	if err != nil {
		return nil, err
	}
	ranking.TeamID = scanUUID(teamID)
	return &ranking, nil
}

// ==================== Finalization Methods ====================

// FinalizeCycle performs the finalization write as a single transaction:
// the guarded CLOSED -> FINALIZED status flip, the unscoped ranking replace,
// and the immutable history snapshots. If any step fails the whole
// transaction rolls back and the cycle remains CLOSED.
func (r *Repository) FinalizeCycle(ctx context.Context, cycleID uuid.UUID, nominations []models.Nomination, rankings []models.Ranking, snapshotAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Guarded flip first: exactly one concurrent finalize can win.
	result, err := tx.ExecContext(ctx,
		`UPDATE cycles SET status = ? WHERE id = ? AND status = ?`,
		string(models.CycleFinalized), cycleID.String(), string(models.CycleClosed))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}

	if err := deleteRankings(ctx, tx, cycleID, nil); err != nil {
		return err
	}
	for _, ranking := range rankings {
		if err := insertRanking(ctx, tx, ranking); err != nil {
			return err
		}
	}

	for _, nom := range nominations {
		scoresJSON, err := json.Marshal(nom.Scores)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO nominations_history
				(id, nomination_id, cycle_id, nominee_id, team_id, submitted_by, submitted_at, status, scores, snapshot_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), nom.ID.String(), nom.CycleID.String(), nom.NomineeID.String(),
			nullUUID(nom.TeamID), nom.SubmittedBy.String(), nom.SubmittedAt, string(nom.Status),
			string(scoresJSON), snapshotAt)
		if err != nil {
			return err
		}
	}

	for _, ranking := range rankings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rankings_history
				(id, ranking_id, cycle_id, team_id, nominee_id, total_score, rank, computed_at, snapshot_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), ranking.ID.String(), ranking.CycleID.String(), nullUUID(ranking.TeamID),
			ranking.NomineeID.String(), ranking.TotalScore, ranking.Rank, ranking.ComputedAt, snapshotAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListNominationSnapshots returns the nomination history of a finalized cycle
func (r *Repository) ListNominationSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.NominationSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nomination_id, cycle_id, nominee_id, team_id, submitted_by, submitted_at, status, scores, snapshot_at
		FROM nominations_history WHERE cycle_id = ? ORDER BY submitted_at
	`, cycleID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.NominationSnapshot
	for rows.Next() {
		var snap models.NominationSnapshot
		var id, nomID, cycID, nomineeID, submittedBy, status string
		var teamID, scoresJSON sql.NullString
		if err := rows.Scan(&id, &nomID, &cycID, &nomineeID, &teamID, &submittedBy,
			&snap.SubmittedAt, &status, &scoresJSON, &snap.SnapshotAt); err != nil {
			return nil, err
		}
		snap.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		snap.NominationID, err = uuid.Parse(nomID)
		if err != nil {
			return nil, err
		}
		snap.CycleID, err = uuid.Parse(cycID)
		if err != nil {
			return nil, err
		}
		snap.NomineeID, err = uuid.Parse(nomineeID)
		if err != nil {
			return nil, err
		}
		snap.SubmittedBy, err = uuid.Parse(submittedBy)
		if err != nil {
			return nil, err
		}
		snap.TeamID = scanUUID(teamID)
		snap.Status = models.NominationStatus(status)
		if scoresJSON.Valid && scoresJSON.String != "" {
			if err := json.Unmarshal([]byte(scoresJSON.String), &snap.Scores); err != nil {
				return nil, err
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// ListRankingSnapshots returns the ranking history of a finalized cycle
func (r *Repository) ListRankingSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.RankingSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ranking_id, cycle_id, team_id, nominee_id, total_score, rank, computed_at, snapshot_at
		FROM rankings_history WHERE cycle_id = ? ORDER BY rank
	`, cycleID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.RankingSnapshot
	for rows.Next() {
		var snap models.RankingSnapshot
		var id, rankingID, cycID, nomineeID string
		var teamID sql.NullString
		if err := rows.Scan(&id, &rankingID, &cycID, &teamID, &nomineeID,
			&snap.TotalScore, &snap.Rank, &snap.ComputedAt, &snap.SnapshotAt); err != nil {
			return nil, err
		}
		snap.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		snap.RankingID, err = uuid.Parse(rankingID)
		if err != nil {
			return nil, err
		}
		snap.CycleID, err = uuid.Parse(cycID)
		if err != nil {
			return nil, err
		}
		snap.NomineeID, err = uuid.Parse(nomineeID)
		if err != nil {
			return nil, err
		}
		snap.TeamID = scanUUID(teamID)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
