package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
)

const dateLayout = "2006-01-02"

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Repository implements store.Repository on top of MySQL, PostgreSQL or SQLite.
type Repository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
	dialect  dialect
}

func newRepository(db *sqlx.DB, d dialect) *Repository {
	return &Repository{
		db:       db,
		executor: db,
		dialect:  d,
	}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &Repository{
		db:       r.db,
		executor: tx,
		dialect:  r.dialect,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *Repository) Usage() store.UsageRepository {
	return &usageRepo{db: r.executor, dialect: r.dialect}
}

func (r *Repository) Users() store.UserRepository {
	return &userRepo{db: r.executor}
}

func (r *Repository) Keys() store.APIKeyRepository {
	return &keyRepo{db: r.executor}
}

func (r *Repository) Events() store.EventRepository {
	return &eventRepo{db: r.executor}
}

// identifiers that may be spliced into SQL
var columnName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type usageRepo struct {
	db      DB
	dialect dialect
}

func (r *usageRepo) CountsByDate(ctx context.Context, q store.CountsQuery) ([]model.CountRow, error) {
	if !columnName.MatchString(q.GroupBy) {
		return nil, fmt.Errorf("illegal group column %q", q.GroupBy)
	}

	query := fmt.Sprintf(`
	SELECT %[1]s AS bucket, COALESCE(b.%[2]s, '') AS group_value, COUNT(*) AS cntr
	FROM tyk_analytics_data a
	JOIN key_tbl b ON b.value = a.api_key
	WHERE %[3]s BETWEEN ? AND ?`, r.dialect.day, q.GroupBy, r.dialect.dateFilter)
	args := []interface{}{q.Start.Format(dateLayout), q.End.Format(dateLayout)}

	if q.UserID != nil {
		query += ` AND b.user_id = ?`
		args = append(args, *q.UserID)
	}
	query += fmt.Sprintf(`
	GROUP BY %[1]s, b.%[2]s
	ORDER BY bucket`, r.dialect.day, q.GroupBy)

	rows := []model.CountRow{}
	if err := r.db.SelectContext(ctx, &rows, r.dialect.rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *usageRepo) TopUsers(ctx context.Context, q store.LeaderboardQuery) ([]model.LeaderboardRow, error) {
	if !columnName.MatchString(q.GroupBy) {
		return nil, fmt.Errorf("illegal group column %q", q.GroupBy)
	}

	query := fmt.Sprintf(`
	WITH paginated_data AS (
		SELECT COALESCE(b.%[1]s, '') AS group_value, b.user_id AS user_id, COUNT(*) AS cntr
		FROM tyk_analytics_data a
		JOIN key_tbl b ON b.value = a.api_key
		WHERE %[2]s BETWEEN ? AND ?
		GROUP BY b.%[1]s, b.user_id`, q.GroupBy, r.dialect.dateFilter)
	args := []interface{}{q.Start.Format(dateLayout), q.End.Format(dateLayout)}

	if q.GroupFilter != nil {
		query += fmt.Sprintf(`
		HAVING b.%s = ?`, q.GroupBy)
		args = append(args, *q.GroupFilter)
	}
	query += `
	)
	SELECT p.group_value, p.user_id,
		COALESCE(u.first_name, '') AS first_name,
		COALESCE(u.last_name, '') AS last_name,
		COALESCE(u.email, '') AS email,
		p.cntr,
		(SELECT COUNT(*) FROM paginated_data) AS total_records
	FROM paginated_data p
	LEFT JOIN user_tbl u ON u.user_id = p.user_id
	ORDER BY p.cntr DESC, p.user_id ASC
	LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows := []model.LeaderboardRow{}
	if err := r.db.SelectContext(ctx, &rows, r.dialect.rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

type userRepo struct {
	db DB
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	query := `
	INSERT INTO user_tbl (user_id, first_name, last_name, email, created_at)
	VALUES (:user_id, :first_name, :last_name, :email, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

type keyRepo struct {
	db DB
}

func (r *keyRepo) Create(ctx context.Context, key *model.APIKey) error {
	query := `
	INSERT INTO key_tbl (value, user_id, ref_app, tier, created_at)
	VALUES (:value, :user_id, :ref_app, :tier, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, key)
	return err
}

type eventRepo struct {
	db DB
}

func (r *eventRepo) Record(ctx context.Context, e *model.RequestEvent) error {
	query := `
	INSERT INTO tyk_analytics_data (id, api_key, request_date, path, status_code)
	VALUES (:id, :api_key, :request_date, :path, :status_code)`
	_, err := r.db.NamedExecContext(ctx, query, e)
	return err
}
