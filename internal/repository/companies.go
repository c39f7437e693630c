package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

// pgxPool is the subset of *pgxpool.Pool used by the repository.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// ErrQueryNotFound indicates there is no query row for the given id.
var ErrQueryNotFound = errors.New("query not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var companyColumns = []string{
	"c.id", "c.name", "c.website", "c.phone",
	"c.full_address", "c.borough", "c.line1", "c.city", "c.zip", "c.region", "c.country_code", "c.enriched_at",
	"m.company_id IS NOT NULL",
	"COALESCE(m.search_position, 0)", "COALESCE(m.lat, 0)", "COALESCE(m.long, 0)",
	"COALESCE(m.rating, 0)", "COALESCE(m.reviews, 0)", "COALESCE(m.type, '')", "COALESCE(m.thumbnail, '')",
}

var employeeColumns = []string{
	"company_id", "full_name", "first_name", "last_name", "position", "extracted_company",
	"email", "rank_score", "search_title", "linkedin_url", "pre_snippet",
}

// PGXLeadsRepository stores queries, companies, maps data and employees in Postgres.
type PGXLeadsRepository struct {
	pool pgxPool
}

// NewPGXLeadsRepository wires a pgx backed repository.
func NewPGXLeadsRepository(pool pgxPool) *PGXLeadsRepository {
	return &PGXLeadsRepository{pool: pool}
}

// CreateQuery inserts a new run.
func (r *PGXLeadsRepository) CreateQuery(ctx context.Context, q *entity.Query) error {
	if q == nil {
		return fmt.Errorf("query payload is nil")
	}
	query, args, err := psql.Insert("queries").
		Columns("id", "type", "sector", "location", "started_at").
		Values(q.ID, string(q.Type), q.Sector, q.Location, q.StartedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

// FinishQuery stores the final counts and completion time of a run.
func (r *PGXLeadsRepository) FinishQuery(ctx context.Context, q *entity.Query) error {
	if q == nil {
		return fmt.Errorf("query payload is nil")
	}
	query, args, err := psql.Update("queries").
		Set("maps_results", q.MapsResults).
		Set("search_results", q.SearchResults).
		Set("finished_at", q.FinishedAt).
		Where(sq.Expr("id = ?", q.ID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish query: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQueryNotFound
	}
	return nil
}

// GetQuery loads a run by id.
func (r *PGXLeadsRepository) GetQuery(ctx context.Context, id uuid.UUID) (*entity.Query, error) {
	query, args, err := psql.Select("id", "type", "sector", "location", "maps_results", "search_results", "started_at", "finished_at").
		From("queries").
		Where(sq.Expr("id = ?", id)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var (
		q     entity.Query
		qType string
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&q.ID, &qType, &q.Sector, &q.Location, &q.MapsResults, &q.SearchResults, &q.StartedAt, &q.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueryNotFound
		}
		return nil, fmt.Errorf("fetch query: %w", err)
	}
	q.Type = entity.QueryType(qType)
	return &q, nil
}

// SaveCompany writes a company with its maps data and employees in one transaction,
// replacing whatever was stored for the same company id.
func (r *PGXLeadsRepository) SaveCompany(ctx context.Context, queryID uuid.UUID, c *entity.Company) error {
	if c == nil {
		return fmt.Errorf("company payload is nil")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("start save company tx: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert, args, err := psql.Insert("companies").
		Columns("id", "query_id", "name", "website", "phone",
			"full_address", "borough", "line1", "city", "zip", "region", "country_code", "enriched_at").
		Values(c.ID, queryID, c.Name, c.Website, c.Phone,
			c.Address.Address, c.Address.Borough, c.Address.Line1, c.Address.City,
			c.Address.Zip, c.Address.Region, c.Address.CountryCode, c.EnrichedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            website = EXCLUDED.website,
            phone = EXCLUDED.phone,
            full_address = EXCLUDED.full_address,
            borough = EXCLUDED.borough,
            line1 = EXCLUDED.line1,
            city = EXCLUDED.city,
            zip = EXCLUDED.zip,
            region = EXCLUDED.region,
            country_code = EXCLUDED.country_code,
            enriched_at = COALESCE(EXCLUDED.enriched_at, companies.enriched_at),
            updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build company upsert: %w", err)
	}
	if _, err := tx.Exec(ctx, upsert, args...); err != nil {
		return fmt.Errorf("upsert company %q: %w", c.Name, err)
	}
	if err := linkCompany(ctx, tx, queryID, c.ID); err != nil {
		return err
	}

	if m := c.GMapsData; m != nil {
		mapsSQL, mapsArgs, err := psql.Insert("companies_maps_data").
			Columns("company_id", "search_position", "lat", "long", "rating", "reviews", "type", "thumbnail").
			Values(c.ID, m.SearchPosition, m.Lat, m.Long, m.Rating, m.Reviews, m.Type, m.Thumbnail).
			Suffix(`ON CONFLICT (company_id) DO UPDATE SET
            search_position = EXCLUDED.search_position,
            lat = EXCLUDED.lat,
            long = EXCLUDED.long,
            rating = EXCLUDED.rating,
            reviews = EXCLUDED.reviews,
            type = EXCLUDED.type,
            thumbnail = EXCLUDED.thumbnail`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build maps data upsert: %w", err)
		}
		if _, err := tx.Exec(ctx, mapsSQL, mapsArgs...); err != nil {
			return fmt.Errorf("upsert maps data for %q: %w", c.Name, err)
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM employees WHERE company_id = $1", c.ID); err != nil {
		return fmt.Errorf("clear employees for %q: %w", c.Name, err)
	}
	if len(c.Employees) > 0 {
		insert := psql.Insert("employees").Columns(append([]string{"ordinal"}, employeeColumns...)...)
		for i, e := range c.Employees {
			insert = insert.Values(i, c.ID, e.FullName, e.FirstName, e.LastName, e.Position, e.Company,
				e.Email, e.RankScore, e.SearchTitle, e.LinkedInURL, e.PreSnippet)
		}
		empSQL, empArgs, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build employees insert: %w", err)
		}
		if _, err := tx.Exec(ctx, empSQL, empArgs...); err != nil {
			return fmt.Errorf("insert employees for %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save company tx: %w", err)
	}
	return nil
}

// LinkCompany lists an already stored company under another run.
func (r *PGXLeadsRepository) LinkCompany(ctx context.Context, queryID, companyID uuid.UUID) error {
	return linkCompany(ctx, r.pool, queryID, companyID)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func linkCompany(ctx context.Context, db execer, queryID, companyID uuid.UUID) error {
	query, args, err := psql.Insert("query_companies").
		Columns("query_id", "company_id").
		Values(queryID, companyID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build link company query: %w", err)
	}
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("link company %s to query %s: %w", companyID, queryID, err)
	}
	return nil
}

// FindDoneByWebsites returns the most recently enriched company for each of the
// given websites, keyed by website. Companies whose search never completed are
// left out so later runs pick them up again.
func (r *PGXLeadsRepository) FindDoneByWebsites(ctx context.Context, websites []string) (map[string]entity.Company, error) {
	found := make(map[string]entity.Company)
	if len(websites) == 0 {
		return found, nil
	}

	query, args, err := psql.Select(companyColumns...).
		Options("DISTINCT ON (c.website)").
		From("companies c").
		LeftJoin("companies_maps_data m ON m.company_id = c.id").
		Where(sq.Expr("c.website = ANY(?)", websites)).
		Where("c.enriched_at IS NOT NULL").
		OrderBy("c.website", "c.enriched_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find done query: %w", err)
	}

	companies, err := r.queryCompanies(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, c := range companies {
		c.Done = true
		found[c.Website] = c
	}
	return found, nil
}

// ListCompanies returns the companies linked to a run in search order, with
// employees ranked. Companies reused from earlier runs are included.
func (r *PGXLeadsRepository) ListCompanies(ctx context.Context, queryID uuid.UUID) ([]entity.Company, error) {
	query, args, err := psql.Select(companyColumns...).
		From("query_companies qc").
		Join("companies c ON c.id = qc.company_id").
		LeftJoin("companies_maps_data m ON m.company_id = c.id").
		Where(sq.Expr("qc.query_id = ?", queryID)).
		OrderBy("COALESCE(m.search_position, 2147483647)", "c.created_at", "c.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list companies query: %w", err)
	}
	return r.queryCompanies(ctx, query, args...)
}

func (r *PGXLeadsRepository) queryCompanies(ctx context.Context, query string, args ...any) ([]entity.Company, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	companies, err := scanCompanies(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return companies, nil
	}

	ids := make([]uuid.UUID, len(companies))
	index := make(map[uuid.UUID]int, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
		index[c.ID] = i
	}

	empSQL, empArgs, err := psql.Select(employeeColumns...).
		From("employees").
		Where(sq.Expr("company_id = ANY(?)", ids)).
		OrderBy("company_id", "ordinal").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build employees query: %w", err)
	}
	empRows, err := r.pool.Query(ctx, empSQL, empArgs...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer empRows.Close()

	for empRows.Next() {
		var (
			companyID uuid.UUID
			e         entity.Employee
		)
		if err := empRows.Scan(&companyID, &e.FullName, &e.FirstName, &e.LastName, &e.Position, &e.Company,
			&e.Email, &e.RankScore, &e.SearchTitle, &e.LinkedInURL, &e.PreSnippet); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		if i, ok := index[companyID]; ok {
			companies[i].Employees = append(companies[i].Employees, e)
		}
	}
	if err := empRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return companies, nil
}

func scanCompanies(rows pgx.Rows) ([]entity.Company, error) {
	companies := []entity.Company{}
	for rows.Next() {
		var (
			c       entity.Company
			m       entity.MapsData
			hasMaps bool
		)
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Website,
			&c.Phone,
			&c.Address.Address,
			&c.Address.Borough,
			&c.Address.Line1,
			&c.Address.City,
			&c.Address.Zip,
			&c.Address.Region,
			&c.Address.CountryCode,
			&c.EnrichedAt,
			&hasMaps,
			&m.SearchPosition,
			&m.Lat,
			&m.Long,
			&m.Rating,
			&m.Reviews,
			&m.Type,
			&m.Thumbnail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		if hasMaps {
			c.GMapsData = &m
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}
