package rebin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	REVISION_DATE_LAYOUT = "2006-002"
)

func MySQLDSN(user string, pass string, host string, dbname string) string {
	port := "3306"
	return fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
}

// ConnectToDatabase opens the bin mapping store. driver is "mysql" or
// "sqlite"; for sqlite the dsn is a file path or ":memory:".
func ConnectToDatabase(driver string, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverSQLite:
	default:
		return nil, &decoder.ArgumentError{Op: "ConnectToDatabase", Reason: fmt.Sprintf("unsupported driver %q", driver)}
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s database: %w", driver, err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS BinMapping (
		Revision VARCHAR(64) NOT NULL,
		Channel INTEGER NOT NULL,
		Label INTEGER NOT NULL,
		PRIMARY KEY (Revision, Channel)
	)`,
	`CREATE TABLE IF NOT EXISTS RebinRevisions (
		Name VARCHAR(64) NOT NULL PRIMARY KEY,
		Start VARCHAR(16) NOT NULL,
		NumCombine INTEGER NOT NULL,
		EnergyEdges TEXT NOT NULL
	)`,
}

func CreateTables(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error creating tables: %w", err)
		}
	}
	return nil
}

type BinMappingEntry struct {
	Revision string `db:"Revision"`
	Channel  int    `db:"Channel"`
	Label    int    `db:"Label"`
}

// LoadBinMapping reads the channel mapping of one revision. Channels must
// form the contiguous range starting at zero.
func LoadBinMapping(ctx context.Context, db *sqlx.DB, revision string) (ChannelMapping, error) {
	query := db.Rebind("SELECT Revision, Channel, Label FROM BinMapping WHERE Revision = ? ORDER BY Channel")
	logQuery(fmt.Sprintf("Reading bin mapping %q from database", revision), query)

	rows, err := db.QueryxContext(ctx, query, revision)
	if err != nil {
		return ChannelMapping{}, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	labels := make([]int, 0, NUM_FINE_CHANNELS)
	for rows.Next() {
		result := BinMappingEntry{}
		if err := rows.StructScan(&result); err != nil {
			return ChannelMapping{}, fmt.Errorf("error scanning DB row: %w", err)
		}
		if result.Channel != len(labels) {
			return ChannelMapping{}, &decoder.PreconditionError{
				Op:     "LoadBinMapping",
				Reason: fmt.Sprintf("revision %q: expected channel %d, got %d", revision, len(labels), result.Channel),
			}
		}
		labels = append(labels, result.Label)
	}
	if err := rows.Err(); err != nil {
		return ChannelMapping{}, fmt.Errorf("error reading DB rows: %w", err)
	}
	if len(labels) == 0 {
		return ChannelMapping{}, &decoder.PreconditionError{
			Op:     "LoadBinMapping",
			Reason: fmt.Sprintf("no mapping stored for revision %q", revision),
		}
	}
	return ChannelMapping{labels: labels}, nil
}

func StoreBinMapping(ctx context.Context, db *sqlx.DB, revision string, m ChannelMapping) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	insert := "INSERT INTO BinMapping (Revision, Channel, Label) VALUES (:Revision, :Channel, :Label)"
	for channel, label := range m.labels {
		entry := BinMappingEntry{Revision: revision, Channel: channel, Label: label}
		if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
			return fmt.Errorf("error storing channel %d: %w", channel, err)
		}
	}
	return tx.Commit()
}

type revisionRow struct {
	Name        string `db:"Name"`
	Start       string `db:"Start"`
	NumCombine  int    `db:"NumCombine"`
	EnergyEdges string `db:"EnergyEdges"`
}

func (r revisionRow) toRevision() (Revision, error) {
	start, err := time.Parse(REVISION_DATE_LAYOUT, r.Start)
	if err != nil {
		return Revision{}, fmt.Errorf("error parsing start of revision %q: %w", r.Name, err)
	}
	fields := strings.Fields(r.EnergyEdges)
	edges := make([]int, len(fields))
	for i, field := range fields {
		edges[i], err = strconv.Atoi(field)
		if err != nil {
			return Revision{}, fmt.Errorf("error parsing edges of revision %q: %w", r.Name, err)
		}
	}
	return Revision{Name: r.Name, Start: start, NumCombine: r.NumCombine, EnergyEdges: edges}, nil
}

// LoadRevisions reads every rebinning revision, oldest first.
func LoadRevisions(ctx context.Context, db *sqlx.DB) ([]Revision, error) {
	query := "SELECT Name, Start, NumCombine, EnergyEdges FROM RebinRevisions ORDER BY Start"
	logQuery("Reading rebin revisions from database", query)

	rows := []revisionRow{}
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	revisions := make([]Revision, 0, len(rows))
	for _, row := range rows {
		rev, err := row.toRevision()
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, nil
}

func StoreRevision(ctx context.Context, db *sqlx.DB, rev Revision) error {
	edges := make([]string, len(rev.EnergyEdges))
	for i, edge := range rev.EnergyEdges {
		edges[i] = strconv.Itoa(edge)
	}
	row := revisionRow{
		Name:        rev.Name,
		Start:       rev.Start.Format(REVISION_DATE_LAYOUT),
		NumCombine:  rev.NumCombine,
		EnergyEdges: strings.Join(edges, " "),
	}
	insert := "INSERT INTO RebinRevisions (Name, Start, NumCombine, EnergyEdges) VALUES (:Name, :Start, :NumCombine, :EnergyEdges)"
	if _, err := db.NamedExecContext(ctx, insert, row); err != nil {
		return fmt.Errorf("error storing revision %q: %w", rev.Name, err)
	}
	return nil
}

func logQuery(message string, query string) {
	log := decoder.GetLogger()
	if decoder.GetVerbosity() > 0 {
		log.Info(message, "database")
	}
	if decoder.GetVerbosity() > 2 {
		log.Info(fmt.Sprintf("Query: %s", query), "database")
	}
}
