package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// columns lists the cafes table columns in the order scanVenue reads them
// and upsertQuery writes them.
var columns = []string{
	"id", "name", "city", "district", "address", "latitude", "longitude",
	"url", "mrt", "mrt_station", "bus_stop", "open_time",
	"wifi", "socket", "quiet", "tasty", "cheap", "music", "seat",
	"has_wifi", "has_socket", "quiet_level", "price",
	"limited_time", "standing_desk", "reservable", "source", "updated_at",
}

var selectColumns = strings.Join(columns, ", ")

// upsertQuery inserts or replaces one cafe. A stored district survives
// re-ingestion while the address is unchanged.
var upsertQuery = buildUpsertQuery()

func buildUpsertQuery() string {
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns)-1)
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		switch c {
		case "id":
		case "district":
			updates = append(updates, "district = CASE WHEN cafes.address = EXCLUDED.address AND cafes.district <> '' THEN cafes.district ELSE EXCLUDED.district END")
		default:
			updates = append(updates, c+" = EXCLUDED."+c)
		}
	}
	return fmt.Sprintf("INSERT INTO cafes (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		selectColumns, strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

// Store is a venue store backed by PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to url, configures the pool and verifies the connection.
func Open(ctx context.Context, url string, maxConns int, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns < 1 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(max(maxConns/2, 1))
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the cafes table and adds any derived columns missing from
// an older schema. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	s.logger.Info("schema migrated")
	return nil
}

// UpsertVenues writes venues in a single transaction.
func (s *Store) UpsertVenues(ctx context.Context, venues []domain.Venue) error {
	if len(venues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range venues {
		if _, err := stmt.ExecContext(ctx, venueArgs(venues[i])...); err != nil {
			return fmt.Errorf("upsert cafe %s: %w", venues[i].ID, describe(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Venues returns the cafes of city ordered by id, or every cafe when city is
// empty.
func (s *Store) Venues(ctx context.Context, city string) ([]domain.Venue, error) {
	query := "SELECT " + selectColumns + " FROM cafes"
	var args []any
	if city != "" {
		query += " WHERE city = $1"
		args = append(args, city)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cafes: %w", err)
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cafes: %w", err)
	}
	return venues, nil
}

// Venue returns one cafe, or domain.ErrNotFound.
func (s *Store) Venue(ctx context.Context, id string) (domain.Venue, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM cafes WHERE id = $1", id)
	v, err := scanVenue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Venue{}, domain.ErrNotFound
	}
	return v, err
}

// Cities returns the distinct city codes present in the store.
func (s *Store) Cities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT city FROM cafes WHERE city <> '' ORDER BY city")
	if err != nil {
		return nil, fmt.Errorf("query cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVenue(row scanner) (domain.Venue, error) {
	var (
		v          domain.Venue
		lat, lon   sql.NullFloat64
		price      sql.NullInt64
		reservable sql.NullBool
		quietLevel string
	)
	err := row.Scan(
		&v.ID, &v.Name, &v.City, &v.District, &v.Address, &lat, &lon,
		&v.URL, &v.Transit, &v.TransitStation, &v.BusStop, &v.OpenTime,
		&v.Scores.Wifi, &v.Scores.Socket, &v.Scores.Quiet, &v.Scores.Tasty,
		&v.Scores.Cheap, &v.Scores.Music, &v.Scores.Seat,
		&v.HasWifi, &v.HasSocket, &quietLevel, &price,
		&v.LimitedTime, &v.StandingDesk, &reservable, &v.Source, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Venue{}, err
		}
		return domain.Venue{}, fmt.Errorf("scan cafe: %w", err)
	}

	v.QuietLevel = domain.QuietLevel(quietLevel)
	if lat.Valid && lon.Valid {
		v.Geo = &domain.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	if price.Valid {
		p := int(price.Int64)
		v.Price = &p
	}
	if reservable.Valid {
		r := reservable.Bool
		v.Reservable = &r
	}
	return v, nil
}

// venueArgs returns the values of v in column order.
func venueArgs(v domain.Venue) []any {
	var lat, lon sql.NullFloat64
	if v.Geo != nil {
		lat = sql.NullFloat64{Float64: v.Geo.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: v.Geo.Lon, Valid: true}
	}
	var price sql.NullInt64
	if v.Price != nil {
		price = sql.NullInt64{Int64: int64(*v.Price), Valid: true}
	}
	var reservable sql.NullBool
	if v.Reservable != nil {
		reservable = sql.NullBool{Bool: *v.Reservable, Valid: true}
	}
	updated := v.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return []any{
		v.ID, v.Name, v.City, v.District, v.Address, lat, lon,
		v.URL, v.Transit, v.TransitStation, v.BusStop, v.OpenTime,
		v.Scores.Wifi, v.Scores.Socket, v.Scores.Quiet, v.Scores.Tasty,
		v.Scores.Cheap, v.Scores.Music, v.Scores.Seat,
		v.HasWifi, v.HasSocket, string(v.QuietLevel), price,
		v.LimitedTime, v.StandingDesk, reservable, v.Source, updated,
	}
}

// describe adds the Postgres error code to err when present.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (code %s)", err, pqErr.Code)
	}
	return err
}
