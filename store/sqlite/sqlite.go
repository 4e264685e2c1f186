/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store and generic.TxStore using SQLite. Services are
  stored as their factory JSON so the table layout does not follow every
  requirement kind. In production, the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  resources:            The resource pool, in insertion order
  services:             Service definitions (factory JSON, versioned)
  bookings:             Accepted bookings, one row per booking
  resource_commitments: Which resource fills which requirement of a booking

COMMITMENTS ARE REPLAYED:
  Bookings come back from ListBookings with their stored commitments as
  fixed commitments. Re-running the engine over stored bookings therefore
  keeps every accepted assignment in place.

INDEXES:
  - idx_bookings_date: ListBookings date range (hot path)
  - idx_commitments_resource: Who uses a resource

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Booking creation runs inside WithTx
  so the read-resource-write cycle holds the write lock throughout.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/slots.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - factory/service.go: Service JSON stored in services.config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
)

// timestampFormat has a fixed width so created_at sorts as text.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.TxStore using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	services *factory.ServiceFactory
	now      func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, services: factory.NewServiceFactory(), now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		availability_json TEXT NOT NULL,
		metadata_json TEXT,
		position INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resources_type
		ON resources(type);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookings (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		service_id TEXT NOT NULL REFERENCES services(id),
		slot_date TEXT NOT NULL,
		from_time TEXT NOT NULL,
		to_time TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_date
		ON bookings(slot_date);

	CREATE TABLE IF NOT EXISTS resource_commitments (
		booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		requirement_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		PRIMARY KEY (booking_id, requirement_id)
	);

	CREATE INDEX IF NOT EXISTS idx_commitments_resource
		ON resource_commitments(resource_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// RESOURCES
// =============================================================================

// SaveResource inserts or replaces a resource, keeping its original position.
// Edits that strand a committed booking fail with generic.ErrResourceCommitted.
func (s *Store) SaveResource(ctx context.Context, r generic.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveResource(ctx, s.db, r)
}

func (s *Store) saveResource(ctx context.Context, db execer, r generic.Resource) error {
	committed, err := s.queryBookings(ctx, db,
		bookingSelect+" WHERE b.id IN (SELECT booking_id FROM resource_commitments WHERE resource_id = ?) ORDER BY b.created_at, b.seq",
		string(r.ID))
	if err != nil {
		return err
	}
	if err := generic.CheckResourceEdit(r, committed); err != nil {
		return err
	}

	rj := factory.ResourceToJSON(r)
	availability, err := json.Marshal(rj.Availability)
	if err != nil {
		return fmt.Errorf("failed to encode availability: %w", err)
	}
	var metadata sql.NullString
	if len(rj.Metadata) > 0 {
		data, err := json.Marshal(rj.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO resources (id, type, availability_json, metadata_json, position, created_at)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM resources), ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			availability_json = excluded.availability_json,
			metadata_json = excluded.metadata_json
	`
	_, err = db.ExecContext(ctx, query,
		rj.ID, rj.Type, string(availability), metadata,
		s.now().UTC().Format(timestampFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, id generic.ResourceID) (generic.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getResource(ctx, s.db, id)
}

func (s *Store) getResource(ctx context.Context, db execer, id generic.ResourceID) (generic.Resource, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, type, availability_json, metadata_json FROM resources WHERE id = ?", string(id))
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Resource{}, generic.ErrResourceNotFound
	}
	return r, err
}

// ListResources returns the pool in insertion order.
func (s *Store) ListResources(ctx context.Context) ([]generic.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listResources(ctx, s.db)
}

func (s *Store) listResources(ctx context.Context, db execer) ([]generic.Resource, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, type, availability_json, metadata_json FROM resources ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []generic.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(row scanner) (generic.Resource, error) {
	var (
		rj           factory.ResourceJSON
		availability string
		metadata     sql.NullString
	)
	if err := row.Scan(&rj.ID, &rj.Type, &availability, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return generic.Resource{}, err
		}
		return generic.Resource{}, fmt.Errorf("failed to scan resource: %w", err)
	}
	if err := json.Unmarshal([]byte(availability), &rj.Availability); err != nil {
		return generic.Resource{}, fmt.Errorf("resource %s: bad availability: %w", rj.ID, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rj.Metadata); err != nil {
			return generic.Resource{}, fmt.Errorf("resource %s: bad metadata: %w", rj.ID, err)
		}
	}
	return factory.ResourceFromJSON(rj)
}

// =============================================================================
// SERVICES
// =============================================================================

// SaveService stores a validated service, bumping its version on update.
// Stored bookings are hydrated against the latest version, so an update may
// not drop or narrow a requirement they hold (generic.ErrRequirementInUse).
func (s *Store) SaveService(ctx context.Context, svc generic.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveService(ctx, s.db, svc)
}

func (s *Store) saveService(ctx context.Context, db execer, svc generic.Service) error {
	if err := svc.Validate(); err != nil {
		return err
	}
	stored, err := s.queryBookings(ctx, db,
		bookingSelect+" WHERE b.service_id = ? ORDER BY b.created_at, b.seq", string(svc.ID))
	if err != nil {
		return err
	}
	resources, err := s.listResources(ctx, db)
	if err != nil {
		return err
	}
	if err := generic.CheckServiceEdit(svc, stored, resources); err != nil {
		return err
	}

	config, err := s.services.Marshal(svc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO services (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = services.version + 1,
			updated_at = excluded.updated_at
	`
	now := s.now().UTC().Format(timestampFormat)
	if _, err := db.ExecContext(ctx, query, string(svc.ID), svc.Name, config, now, now); err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, id generic.ServiceID) (generic.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getService(ctx, s.db, id)
}

func (s *Store) getService(ctx context.Context, db execer, id generic.ServiceID) (generic.Service, error) {
	var config string
	err := db.QueryRowContext(ctx, "SELECT config_json FROM services WHERE id = ?", string(id)).Scan(&config)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Service{}, generic.ErrServiceNotFound
	}
	if err != nil {
		return generic.Service{}, fmt.Errorf("failed to get service: %w", err)
	}
	return s.services.ParseService(config)
}

func (s *Store) ListServices(ctx context.Context) ([]generic.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listServices(ctx, s.db)
}

func (s *Store) listServices(ctx context.Context, db execer) ([]generic.Service, error) {
	rows, err := db.QueryContext(ctx, "SELECT config_json FROM services ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []generic.Service
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		svc, err := s.services.ParseService(config)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// =============================================================================
// BOOKINGS
// =============================================================================

// SaveBooking stores the booking and one commitment row per requirement.
func (s *Store) SaveBooking(ctx context.Context, rb generic.ResourcedBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.saveBooking(ctx, sqlTx, rb); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) saveBooking(ctx context.Context, db execer, rb generic.ResourcedBooking) error {
	b := rb.Booking
	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (id, service_id, slot_date, from_time, to_time, capacity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(b.ID), string(b.Service().ID),
		b.Timeslot.Date().String(), b.Timeslot.From.Time.String(), b.Timeslot.To.Time.String(),
		int(b.Spec.BookedCapacity),
		s.now().UTC().Format(timestampFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateBooking
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}

	for _, c := range rb.Commitments {
		_, err := db.ExecContext(ctx,
			"INSERT INTO resource_commitments (booking_id, requirement_id, resource_id) VALUES (?, ?, ?)",
			string(b.ID), string(c.Requirement.RequirementID()), string(c.Resource.ID),
		)
		if err != nil {
			return fmt.Errorf("failed to save commitment: %w", err)
		}
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id generic.BookingID) (generic.StoredBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBooking(ctx, s.db, id)
}

func (s *Store) getBooking(ctx context.Context, db execer, id generic.BookingID) (generic.StoredBooking, error) {
	bookings, err := s.queryBookings(ctx, db, bookingSelect+" WHERE b.id = ?", string(id))
	if err != nil {
		return generic.StoredBooking{}, err
	}
	if len(bookings) == 0 {
		return generic.StoredBooking{}, generic.ErrBookingNotFound
	}
	return bookings[0], nil
}

// ListBookings returns bookings starting in [from, to] in creation order.
func (s *Store) ListBookings(ctx context.Context, from, to generic.Date) ([]generic.StoredBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listBookings(ctx, s.db, from, to)
}

func (s *Store) listBookings(ctx context.Context, db execer, from, to generic.Date) ([]generic.StoredBooking, error) {
	return s.queryBookings(ctx, db,
		bookingSelect+" WHERE b.slot_date >= ? AND b.slot_date <= ? ORDER BY b.created_at, b.seq",
		from.String(), to.String())
}

const bookingSelect = `
	SELECT b.id, b.service_id, b.slot_date, b.from_time, b.to_time, b.capacity, b.created_at
	FROM bookings b`

type bookingRow struct {
	json      factory.BookingJSON
	createdAt time.Time
}

func (s *Store) queryBookings(ctx context.Context, db execer, query string, args ...any) ([]generic.StoredBooking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	var raw []bookingRow
	for rows.Next() {
		var (
			br        bookingRow
			createdAt string
		)
		if err := rows.Scan(&br.json.ID, &br.json.ServiceID, &br.json.Date, &br.json.From, &br.json.To, &br.json.Capacity, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		br.createdAt, _ = time.Parse(timestampFormat, createdAt)
		raw = append(raw, br)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(raw) == 0 {
		return nil, nil
	}

	services, resources, err := s.lookups(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]generic.StoredBooking, 0, len(raw))
	for _, br := range raw {
		fixed, err := s.commitments(ctx, db, br.json.ID)
		if err != nil {
			return nil, err
		}
		br.json.Fixed = fixed
		b, err := factory.BookingFromJSON(br.json, services, resources)
		if err != nil {
			return nil, err
		}
		out = append(out, generic.StoredBooking{Booking: b, CreatedAt: br.createdAt})
	}
	return out, nil
}

func (s *Store) commitments(ctx context.Context, db execer, bookingID string) ([]factory.FixedJSON, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT requirement_id, resource_id FROM resource_commitments WHERE booking_id = ? ORDER BY rowid", bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitments: %w", err)
	}
	defer rows.Close()

	var fixed []factory.FixedJSON
	for rows.Next() {
		var fj factory.FixedJSON
		if err := rows.Scan(&fj.RequirementID, &fj.ResourceID); err != nil {
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}
		fixed = append(fixed, fj)
	}
	return fixed, rows.Err()
}

func (s *Store) lookups(ctx context.Context, db execer) (map[generic.ServiceID]generic.Service, map[generic.ResourceID]generic.Resource, error) {
	svcs, err := s.listServices(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.listResources(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	services := make(map[generic.ServiceID]generic.Service, len(svcs))
	for _, svc := range svcs {
		services[svc.ID] = svc
	}
	resources := make(map[generic.ResourceID]generic.Resource, len(res))
	for _, r := range res {
		resources[r.ID] = r
	}
	return services, resources, nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx, parent: s}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every call on the open transaction; the parent's lock is
// already held.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) SaveResource(ctx context.Context, r generic.Resource) error {
	return ts.parent.saveResource(ctx, ts.tx, r)
}

func (ts *txStore) GetResource(ctx context.Context, id generic.ResourceID) (generic.Resource, error) {
	return ts.parent.getResource(ctx, ts.tx, id)
}

func (ts *txStore) ListResources(ctx context.Context) ([]generic.Resource, error) {
	return ts.parent.listResources(ctx, ts.tx)
}

func (ts *txStore) SaveService(ctx context.Context, svc generic.Service) error {
	return ts.parent.saveService(ctx, ts.tx, svc)
}

func (ts *txStore) GetService(ctx context.Context, id generic.ServiceID) (generic.Service, error) {
	return ts.parent.getService(ctx, ts.tx, id)
}

func (ts *txStore) ListServices(ctx context.Context) ([]generic.Service, error) {
	return ts.parent.listServices(ctx, ts.tx)
}

func (ts *txStore) SaveBooking(ctx context.Context, rb generic.ResourcedBooking) error {
	return ts.parent.saveBooking(ctx, ts.tx, rb)
}

func (ts *txStore) GetBooking(ctx context.Context, id generic.BookingID) (generic.StoredBooking, error) {
	return ts.parent.getBooking(ctx, ts.tx, id)
}

func (ts *txStore) ListBookings(ctx context.Context, from, to generic.Date) ([]generic.StoredBooking, error) {
	return ts.parent.listBookings(ctx, ts.tx, from, to)
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset deletes all data. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"resource_commitments", "bookings", "services", "resources"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
