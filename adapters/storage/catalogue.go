package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"dose-calculator/core/catalog"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
	"dose-calculator/internal/logging"
)

// SQLCatalogue serves the catalogue from a SQLite or Postgres database.
// Safe for concurrent use through the database/sql pool.
type SQLCatalogue struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

var _ catalog.Catalogue = (*SQLCatalogue)(nil)

// OpenCatalogue opens a catalogue database and ensures its schema.
// For sqlite dsn is a file path; for postgres a connection string.
func OpenCatalogue(ctx context.Context, dialect Dialect, dsn string) (*SQLCatalogue, error) {
	switch dialect {
	case DialectSQLite:
		if dsn == "" {
			dsn = "dose-catalogue.db"
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Storage("failed to create catalogue directory", err)
			}
		}
	case DialectPostgres:
		if dsn == "" {
			dsn = "postgres://localhost/dose?sslmode=disable"
		}
	default:
		return nil, errors.Configf("unsupported catalogue dialect: %s", dialect)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, errors.Storage("open catalogue", err)
	}
	if dialect == DialectSQLite {
		// one connection keeps a single sqlite writer
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Storage("ping catalogue", err)
	}

	c := NewSQLCatalogue(db, dialect)
	if err := c.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLCatalogue wraps an open database
func NewSQLCatalogue(db *sql.DB, dialect Dialect) *SQLCatalogue {
	return &SQLCatalogue{
		db:      db,
		dialect: dialect,
		log:     logging.Named("catalogue").With(zap.String("dialect", string(dialect))),
	}
}

// EnsureSchema creates missing tables
func (c *SQLCatalogue) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return errors.Storage("create catalogue schema", err)
		}
	}
	return nil
}

// Empty reports whether the catalogue holds no sources
func (c *SQLCatalogue) Empty(ctx context.Context) (bool, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&n); err != nil {
		return false, errors.Storage("count sources", err)
	}
	return n == 0, nil
}

// Import validates a dataset and replaces the catalogue contents with it in
// one transaction
func (c *SQLCatalogue) Import(ctx context.Context, data *catalog.Dataset) (retErr error) {
	if err := data.Validate(catalog.DefaultValidationRules()); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("begin import", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Storage("clear "+table, err)
		}
	}

	insert := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, c.dialect.rebind(query), args...)
		return err
	}

	for _, s := range data.Sources {
		if err := insert(`INSERT INTO sources (id, isotope, serial, production_date, original_activity_bq) VALUES (?, ?, ?, ?, ?)`,
			s.Index, s.Isotope, s.Serial, s.ProductionDate.String(), s.OriginalActivity); err != nil {
			return errors.Storage(fmt.Sprintf("insert source %d", s.Index), err)
		}
	}
	for _, iso := range data.Isotopes() {
		if err := insert(`INSERT INTO half_lives (isotope, half_life_days) VALUES (?, ?)`, iso, data.HalfLives[iso]); err != nil {
			return errors.Storage("insert half-life of "+iso, err)
		}
		for _, l := range data.Lines[iso] {
			if err := insert(`INSERT INTO emission_lines (isotope, energy_mev, yield_percent) VALUES (?, ?, ?)`,
				iso, l.EnergyMeV, l.YieldPercent); err != nil {
				return errors.Storage("insert emission line of "+iso, err)
			}
		}
	}
	for _, series := range data.Series {
		for _, p := range series.Samples {
			if err := insert(`INSERT INTO coefficients (category, series_key, energy_mev, value) VALUES (?, ?, ?, ?)`,
				string(series.Category), series.Key, p.X, p.Y); err != nil {
				return errors.Storage("insert coefficients "+series.String(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Storage("commit import", err)
	}
	c.log.Info("catalogue imported",
		zap.Int("sources", len(data.Sources)),
		zap.Int("isotopes", len(data.HalfLives)),
		zap.Int("series", len(data.Series)))
	return nil
}

// Sources lists every source ordered by index
func (c *SQLCatalogue) Sources(ctx context.Context) ([]catalog.SourceRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, isotope, serial, production_date, original_activity_bq FROM sources ORDER BY id`)
	if err != nil {
		return nil, errors.Storage("select sources", err)
	}
	defer func() { _ = rows.Close() }()

	var out []catalog.SourceRecord
	for rows.Next() {
		rec, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("select sources", err)
	}
	return out, nil
}

// Source returns the source at a zero-based index
func (c *SQLCatalogue) Source(ctx context.Context, index int) (catalog.SourceRecord, error) {
	row := c.db.QueryRowContext(ctx, c.dialect.rebind(
		`SELECT id, isotope, serial, production_date, original_activity_bq FROM sources WHERE id = ?`), index)
	rec, err := scanSource(row)
	if errors.IsType(err, errors.TypeStorage) {
		if e, _ := errors.As(err); e.Cause == sql.ErrNoRows {
			return catalog.SourceRecord{}, errors.NotFound("source", strconv.Itoa(index))
		}
	}
	return rec, err
}

// Isotopes lists isotopes sorted by name
func (c *SQLCatalogue) Isotopes(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT isotope FROM half_lives ORDER BY isotope`)
	if err != nil {
		return nil, errors.Storage("select isotopes", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Storage("scan isotope", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("select isotopes", err)
	}
	return out, nil
}

// HalfLife returns the half-life of an isotope in days
func (c *SQLCatalogue) HalfLife(ctx context.Context, isotope string) (float64, error) {
	var days float64
	err := c.db.QueryRowContext(ctx, c.dialect.rebind(
		`SELECT half_life_days FROM half_lives WHERE isotope = ?`), isotope).Scan(&days)
	switch {
	case err == sql.ErrNoRows:
		return 0, errors.NotFound("half-life", isotope)
	case err != nil:
		return 0, errors.Storage("select half-life", err)
	}
	return days, nil
}

// Lines returns the emission spectrum of an isotope ordered by energy
func (c *SQLCatalogue) Lines(ctx context.Context, isotope string) ([]types.EmissionLine, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.rebind(
		`SELECT energy_mev, yield_percent FROM emission_lines WHERE isotope = ? ORDER BY energy_mev`), isotope)
	if err != nil {
		return nil, errors.Storage("select emission lines", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.EmissionLine
	for rows.Next() {
		var l types.EmissionLine
		if err := rows.Scan(&l.EnergyMeV, &l.YieldPercent); err != nil {
			return nil, errors.Storage("scan emission line", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("select emission lines", err)
	}
	if len(out) == 0 {
		return nil, errors.NotFound("emission lines", isotope)
	}
	return out, nil
}

// Coefficients returns a coefficient series ordered by energy
func (c *SQLCatalogue) Coefficients(ctx context.Context, category catalog.Category, key string) ([]types.Sample, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.rebind(
		`SELECT energy_mev, value FROM coefficients WHERE category = ? AND series_key = ? ORDER BY energy_mev`),
		string(category), key)
	if err != nil {
		return nil, errors.Storage("select coefficients", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Sample
	for rows.Next() {
		var s types.Sample
		if err := rows.Scan(&s.X, &s.Y); err != nil {
			return nil, errors.Storage("scan coefficient", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("select coefficients", err)
	}
	if len(out) == 0 {
		return nil, errors.NotFound("coefficient series", string(category)+"/"+key)
	}
	return out, nil
}

// Close closes the database
func (c *SQLCatalogue) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (catalog.SourceRecord, error) {
	var (
		rec      catalog.SourceRecord
		produced string
	)
	if err := row.Scan(&rec.Index, &rec.Isotope, &rec.Serial, &produced, &rec.OriginalActivity); err != nil {
		return catalog.SourceRecord{}, errors.Storage("scan source", err)
	}
	date, err := types.ParseDate(produced)
	if err != nil {
		return catalog.SourceRecord{}, errors.Wrapf(errors.TypeStorage, err, "source %d has a corrupt production date", rec.Index)
	}
	rec.ProductionDate = date
	return rec, nil
}
