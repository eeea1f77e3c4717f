// Package sqldb provides a SQL implementation of the storage interface
// for users and file entities. It runs on PostgreSQL through pgx and on
// SQLite through modernc.org/sqlite, applying the embedded migrations of the
// selected dialect in Prepare.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var dialectMap = map[string]string{
	DriverSQLite:   "sqlite3",
	DriverPostgres: "postgres",
}

var migrationsDirMap = map[string]string{
	DriverSQLite:   "migrations/sqlite",
	DriverPostgres: "migrations/postgres",
}

const uniqueViolationCode = "23505"

// ErrNotPrepared is returned by Ping until the migrations have been applied.
var ErrNotPrepared = errors.New("database migrations are not applied yet")

// SQLDB is a database/sql backed storage.
type SQLDB struct {
	database          *sqlx.DB
	connectionTimeout time.Duration
	driver            string
	dialect           string
	preReset          bool

	prepareMutex sync.Mutex
	prepared     atomic.Bool
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table before the migrations run.
// It is meant for tests and development setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Log.Errorf(format, v...)
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.Log.Debugf(format, v...)
}

// New opens the database with the given driver, migrates it and
// returns a ready storage.
func New(
	ctx context.Context,
	driver string,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*SQLDB, error) {
	result, err := Open(driver, databaseDSN, connectionTimeout, optionsProto...)
	if err != nil {
		return nil, err
	}

	if err := result.Prepare(ctx); err != nil {
		_ = result.Close()
		return nil, err
	}

	return result, nil
}

// Open returns a storage without contacting the server. Prepare must
// succeed before the storage reports itself healthy.
func Open(
	driver string,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*SQLDB, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	dialect, ok := dialectMap[driver]
	if !ok {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/Open(): unsupported driver %q", driver)
	}

	database, err := sqlx.Open(driver, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/Open(): error while `sqlx.Open()` calling: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		database.SetMaxOpenConns(1)
	}

	return &SQLDB{
		database:          database,
		connectionTimeout: connectionTimeout,
		driver:            driver,
		dialect:           dialect,
		preReset:          options.DBPreReset,
	}, nil
}

// Prepare applies the migrations once. It may be called again after a
// failure, e.g. while the server is still unreachable.
func (db *SQLDB) Prepare(ctx context.Context) error {
	if db.prepared.Load() {
		return nil
	}

	db.prepareMutex.Lock()
	defer db.prepareMutex.Unlock()
	if db.prepared.Load() {
		return nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	if db.preReset {
		if err := db.resetDB(ctxWithTimeout); err != nil {
			return fmt.Errorf(
				"in internal/db/sqldb/sqldb.go/Prepare(): error while `db.resetDB()` calling: %w",
				err,
			)
		}
	}

	if err := migrate(ctxWithTimeout, db.database.DB, db.driver, db.dialect); err != nil {
		return err
	}

	db.prepared.Store(true)

	return nil
}

func migrate(ctx context.Context, database *sql.DB, driver, dialect string) error {
	migrations, err := fs.Sub(migrationsFS, migrationsDirMap[driver])
	if err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/migrate(): error while `fs.Sub()` calling: %w", err)
	}

	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/migrate(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, database, "."); err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/migrate(): error while `goose.UpContext()` calling: %w", err)
	}

	return nil
}

func (db *SQLDB) resetDB(ctx context.Context) error {
	for _, table := range []string{"files", "users", "goose_db_version"} {
		if _, err := db.database.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf(
				"in internal/db/sqldb/sqldb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
				err,
			)
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
	}

	return false
}

// CreateUser inserts a new user and returns its id.
func (db *SQLDB) CreateUser(ctx context.Context, email, passwordDigest string) (int64, error) {
	var userID int64
	err := db.database.QueryRowxContext(
		ctx,
		db.database.Rebind(`INSERT INTO users (email, password) VALUES (?, ?) RETURNING id`),
		email,
		passwordDigest,
	).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, models.ErrAlreadyExists
		}
		return 0, fmt.Errorf("in internal/db/sqldb/sqldb.go/CreateUser(): error while `Scan()` calling: %w", err)
	}

	return userID, nil
}

func (db *SQLDB) getUser(ctx context.Context, query string, args ...interface{}) (*user.User, bool, error) {
	usr := &user.User{}
	err := db.database.GetContext(ctx, usr, db.database.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("in internal/db/sqldb/sqldb.go/getUser(): error while `db.database.GetContext()` calling: %w", err)
	}

	return usr, true, nil
}

// GetUserByCredentials finds the user with the given email and password digest.
func (db *SQLDB) GetUserByCredentials(ctx context.Context, email, passwordDigest string) (*user.User, bool, error) {
	return db.getUser(
		ctx,
		`SELECT id, email, password FROM users WHERE email = ? AND password = ?`,
		email,
		passwordDigest,
	)
}

// GetUserByID finds a user by id.
func (db *SQLDB) GetUserByID(ctx context.Context, userID int64) (*user.User, bool, error) {
	return db.getUser(ctx, `SELECT id, email, password FROM users WHERE id = ?`, userID)
}

// GetUserByEmail finds a user by email.
func (db *SQLDB) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	return db.getUser(ctx, `SELECT id, email, password FROM users WHERE email = ?`, email)
}

// InsertFile stores a new file entity. Folders keep a NULL local_path.
func (db *SQLDB) InsertFile(ctx context.Context, file *models.File) (int64, error) {
	var fileID int64
	err := db.database.QueryRowxContext(
		ctx,
		db.database.Rebind(`
			INSERT INTO files (user_id, name, type, is_public, parent_id, local_path)
				VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))
				RETURNING id
		`),
		file.UserID,
		file.Name,
		string(file.Type),
		file.IsPublic,
		file.ParentID,
		file.LocalPath,
	).Scan(&fileID)
	if err != nil {
		return 0, fmt.Errorf("in internal/db/sqldb/sqldb.go/InsertFile(): error while `Scan()` calling: %w", err)
	}

	return fileID, nil
}

const selectFile = `
	SELECT id, user_id, name, type, is_public, parent_id, COALESCE(local_path, '') AS local_path
		FROM files
`

func (db *SQLDB) getFile(ctx context.Context, query string, args ...interface{}) (*models.File, bool, error) {
	file := &models.File{}
	err := db.database.GetContext(ctx, file, db.database.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("in internal/db/sqldb/sqldb.go/getFile(): error while `db.database.GetContext()` calling: %w", err)
	}

	return file, true, nil
}

// FindFileByID finds a file entity regardless of its owner.
func (db *SQLDB) FindFileByID(ctx context.Context, fileID int64) (*models.File, bool, error) {
	return db.getFile(ctx, selectFile+` WHERE id = ?`, fileID)
}

// FindUserFile finds a file entity by id and owner.
func (db *SQLDB) FindUserFile(ctx context.Context, fileID, userID int64) (*models.File, bool, error) {
	return db.getFile(ctx, selectFile+` WHERE id = ? AND user_id = ?`, fileID, userID)
}

// ListUserFiles returns one page of the owner's entities under parentID.
func (db *SQLDB) ListUserFiles(ctx context.Context, userID, parentID int64, offset, limit int) ([]models.File, error) {
	result := []models.File{}
	err := db.database.SelectContext(
		ctx,
		&result,
		db.database.Rebind(selectFile+` WHERE user_id = ? AND parent_id = ? ORDER BY id LIMIT ? OFFSET ?`),
		userID,
		parentID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/ListUserFiles(): error while `db.database.SelectContext()` calling: %w", err)
	}

	return result, nil
}

// SetFilePublic updates the visibility of an entity owned by userID.
func (db *SQLDB) SetFilePublic(ctx context.Context, fileID, userID int64, isPublic bool) (bool, error) {
	res, err := db.database.ExecContext(
		ctx,
		db.database.Rebind(`UPDATE files SET is_public = ? WHERE id = ? AND user_id = ?`),
		isPublic,
		fileID,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("in internal/db/sqldb/sqldb.go/SetFilePublic(): error while `db.database.ExecContext()` calling: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("in internal/db/sqldb/sqldb.go/SetFilePublic(): error while `res.RowsAffected()` calling: %w", err)
	}

	return affected > 0, nil
}

func (db *SQLDB) count(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := db.database.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, fmt.Errorf("in internal/db/sqldb/sqldb.go/count(): error while `db.database.GetContext()` calling: %w", err)
	}

	return count, nil
}

// CountUsers returns the number of registered users.
func (db *SQLDB) CountUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, "users")
}

// CountFiles returns the number of stored entities.
func (db *SQLDB) CountFiles(ctx context.Context) (int64, error) {
	return db.count(ctx, "files")
}

// Ping verifies connectivity with the database within the configured timeout.
func (db *SQLDB) Ping(ctx context.Context) error {
	if !db.prepared.Load() {
		return ErrNotPrepared
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *SQLDB) Close() error {
	return db.database.Close()
}
