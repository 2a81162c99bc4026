package storage

import (
	"strconv"
	"strings"
)

// Dialect is the SQL flavour of a catalogue database
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// driverName returns the database/sql driver registered for the dialect
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders into the dialect's form
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schema is shared by both dialects; types are chosen to be valid in each
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY,
		isotope TEXT NOT NULL,
		serial TEXT NOT NULL,
		production_date TEXT NOT NULL,
		original_activity_bq DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS half_lives (
		isotope TEXT PRIMARY KEY,
		half_life_days DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS emission_lines (
		isotope TEXT NOT NULL,
		energy_mev DOUBLE PRECISION NOT NULL,
		yield_percent DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (isotope, energy_mev)
	)`,
	`CREATE TABLE IF NOT EXISTS coefficients (
		category TEXT NOT NULL,
		series_key TEXT NOT NULL,
		energy_mev DOUBLE PRECISION NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (category, series_key, energy_mev)
	)`,
}

// tables in dependency-free deletion order
var tables = []string{"sources", "half_lives", "emission_lines", "coefficients"}
