package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/mxindex/internal/domain"
)

// serverColumns is the full column list selected for server records.
const serverColumns = `id, domain, name, description, logo_url, theme,
	registration_open, public_rooms_count, version, federation_version,
	delegated_server, room_versions, created_at, updated_at`

// sortColumns maps filter sort fields to ORDER BY expressions. Nullable
// columns sort through COALESCE so unset values compare as empty/zero.
var sortColumns = map[string]string{
	domain.SortByCreatedAt:  "created_at",
	domain.SortByName:       "COALESCE(name, '')",
	domain.SortByDomain:     "domain",
	domain.SortByRoomsCount: "COALESCE(public_rooms_count, 0)",
}

// ServerRepository handles database operations for server records.
type ServerRepository struct {
	db *sqlx.DB
}

// NewServerRepository creates a new server repository.
func NewServerRepository(db *sqlx.DB) *ServerRepository {
	return &ServerRepository{db: db}
}

// Insert persists a new server record and returns it with its assigned id and
// timestamps. A duplicate domain surfaces as a unique violation; callers
// detect it with IsUniqueViolation.
func (r *ServerRepository) Insert(ctx context.Context, ns *domain.NewServer) (*domain.Server, error) {
	query := `
		INSERT INTO servers (domain, name, description, logo_url, theme,
		                     registration_open, public_rooms_count, version,
		                     federation_version, delegated_server, room_versions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + serverColumns

	var server domain.Server
	err := r.db.GetContext(
		ctx,
		&server,
		query,
		domain.NormalizeDomain(ns.Domain),
		ns.Info.Name,
		ns.Info.Description,
		ns.Info.LogoURL,
		ns.Info.Theme,
		ns.Info.RegistrationOpen,
		ns.Info.PublicRoomsCount,
		ns.Info.Version,
		ns.Info.FederationVersion,
		ns.Info.DelegatedServer,
		ns.Info.RoomVersions,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert server: %w", err)
	}

	return &server, nil
}

// GetByDomain retrieves a server record by domain. Returns nil without error
// when the domain is not indexed.
func (r *ServerRepository) GetByDomain(ctx context.Context, d string) (*domain.Server, error) {
	var server domain.Server
	query := `SELECT ` + serverColumns + ` FROM servers WHERE domain = $1`

	err := r.db.GetContext(ctx, &server, query, domain.NormalizeDomain(d))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}

	return &server, nil
}

// Exists reports whether a domain is already indexed.
func (r *ServerRepository) Exists(ctx context.Context, d string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM servers WHERE domain = $1)`

	err := r.db.GetContext(ctx, &exists, query, domain.NormalizeDomain(d))
	if err != nil {
		return false, fmt.Errorf("failed to check server existence: %w", err)
	}

	return exists, nil
}

// Find retrieves server records matching the filter, with the total count
// over the filtered set before pagination. Ties in the sort key break on
// insertion order so pagination is stable.
func (r *ServerRepository) Find(ctx context.Context, filter domain.ServerFilter) (*domain.PaginatedServers, error) {
	filter.Normalize()

	whereClause, args := buildServerWhere(filter)
	argIndex := len(args) + 1

	var total int64
	countQuery := `SELECT COUNT(*) FROM servers ` + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to count servers: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM servers %s %s LIMIT $%d OFFSET $%d`,
		serverColumns, whereClause, orderClause(filter), argIndex, argIndex+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	servers := []domain.Server{}
	if err := r.db.SelectContext(ctx, &servers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	return &domain.PaginatedServers{
		Servers: servers,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Count returns the total number of indexed servers.
func (r *ServerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM servers`); err != nil {
		return 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return count, nil
}

// Ping verifies database connectivity.
func (r *ServerRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// buildServerWhere builds the WHERE clause and arguments for a filter.
func buildServerWhere(filter domain.ServerFilter) (string, []any) {
	whereClauses := []string{}
	args := []any{}
	argIndex := 1

	if filter.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(domain ILIKE $%d OR name ILIKE $%d OR description ILIKE $%d)",
			argIndex, argIndex, argIndex,
		))
		args = append(args, likePattern(filter.Search))
		argIndex++
	}

	if filter.RegistrationOpen != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("registration_open = $%d", argIndex))
		args = append(args, *filter.RegistrationOpen)
		argIndex++
	}

	if filter.HasRooms != nil {
		if *filter.HasRooms {
			whereClauses = append(whereClauses, "public_rooms_count > 0")
		} else {
			whereClauses = append(whereClauses, "(public_rooms_count IS NULL OR public_rooms_count <= 0)")
		}
	}

	if filter.RoomVersion != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("room_versions ILIKE $%d", argIndex))
		args = append(args, likePattern(filter.RoomVersion))
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	return whereClause, args
}

// likeEscaper neutralizes ILIKE metacharacters so user terms match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring ILIKE pattern from a user-supplied term.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// orderClause builds the ORDER BY clause for a normalized filter. Sort fields
// go through the sortColumns whitelist, never through interpolated input.
func orderClause(filter domain.ServerFilter) string {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns[domain.SortByCreatedAt]
	}

	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s, id ASC", column, direction)
}
