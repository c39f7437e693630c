package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

var companyColumnNames = []string{
	"id", "name", "website", "phone", "full_address", "borough", "line1", "city", "zip", "region", "country_code", "enriched_at",
	"has_maps", "search_position", "lat", "long", "rating", "reviews", "type", "thumbnail",
}

var notEnriched *time.Time

var employeeColumnNames = []string{
	"company_id", "full_name", "first_name", "last_name", "position", "extracted_company",
	"email", "rank_score", "search_title", "linkedin_url", "pre_snippet",
}

func newMockRepo(t *testing.T) (*PGXLeadsRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPGXLeadsRepository(mock), mock
}

func TestPGXLeadsRepository_CreateQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	q := &entity.Query{ID: uuid.New(), Type: entity.QueryTypeStandard, Sector: "plumbers", Location: "Brighton", StartedAt: started}

	mock.ExpectExec("INSERT INTO queries").
		WithArgs(q.ID, "standard", "plumbers", "Brighton", started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.CreateQuery(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.CreateQuery(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil query")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGXLeadsRepository_FinishQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	q := &entity.Query{ID: uuid.New(), MapsResults: 12, SearchResults: 7}
	q.Finish(time.Now())

	mock.ExpectExec("UPDATE queries SET").
		WithArgs(12, 7, q.FinishedAt, q.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.FinishQuery(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("UPDATE queries SET").
		WithArgs(12, 7, q.FinishedAt, q.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.FinishQuery(context.Background(), q); !errors.Is(err, ErrQueryNotFound) {
		t.Fatalf("expected ErrQueryNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGXLeadsRepository_GetQueryNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("FROM queries").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetQuery(context.Background(), id); !errors.Is(err, ErrQueryNotFound) {
		t.Fatalf("expected ErrQueryNotFound, got %v", err)
	}
}

func TestPGXLeadsRepository_SaveCompany(t *testing.T) {
	repo, mock := newMockRepo(t)
	queryID := uuid.New()
	enrichedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	company := &entity.Company{
		ID:         uuid.New(),
		EnrichedAt: &enrichedAt,
		Name:       "Acme Ltd",
		Website: "acme.co.uk",
		Phone:   "+441273000000",
		Address: entity.Address{Address: "1 North St, Brighton", City: "Brighton", Zip: "BN1 1AA", CountryCode: "GB"},
		GMapsData: &entity.MapsData{
			SearchPosition: 3, Lat: 50.82, Long: -0.14, Rating: 4.5, Reviews: 12, Type: "Plumber",
		},
		Employees: []entity.Employee{
			{FullName: "Jane Doe", FirstName: "Jane", LastName: "Doe", Position: "Founder", Company: "Acme Limited", Email: "jane@acme.co.uk", RankScore: 1049},
			{FullName: "John Roe", FirstName: "John", LastName: "Roe", Position: "Manager", Company: "Acme Limited", RankScore: 1021},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO companies ").
		WithArgs(company.ID, queryID, "Acme Ltd", "acme.co.uk", "+441273000000",
			"1 North St, Brighton", "", "", "Brighton", "BN1 1AA", "", "GB", company.EnrichedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO query_companies").
		WithArgs(queryID, company.ID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO companies_maps_data").
		WithArgs(company.ID, 3, 50.82, -0.14, 4.5, 12, "Plumber", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM employees").
		WithArgs(company.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO employees").
		WithArgs(
			0, company.ID, "Jane Doe", "Jane", "Doe", "Founder", "Acme Limited", "jane@acme.co.uk", 1049, "", "", "",
			1, company.ID, "John Roe", "John", "Roe", "Manager", "Acme Limited", "", 1021, "", "", "",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	if err := repo.SaveCompany(context.Background(), queryID, company); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGXLeadsRepository_SaveCompanyRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	company := &entity.Company{Name: "No Site Ltd"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO companies ").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	if err := repo.SaveCompany(context.Background(), uuid.New(), company); err == nil {
		t.Fatalf("expected error from failed insert")
	}
	if company.ID == uuid.Nil {
		t.Fatalf("expected company id to be assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGXLeadsRepository_ListCompanies(t *testing.T) {
	repo, mock := newMockRepo(t)
	queryID := uuid.New()
	acmeID := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	enrichedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	bareID := uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")

	mock.ExpectQuery("FROM query_companies qc JOIN companies c ON c.id = qc.company_id LEFT JOIN companies_maps_data m").
		WithArgs(queryID).
		WillReturnRows(pgxmock.NewRows(companyColumnNames).
			AddRow(acmeID, "Acme Ltd", "acme.co.uk", "+441273000000", "1 North St", "", "", "Brighton", "BN1 1AA", "", "GB", &enrichedAt,
				true, 1, 50.82, -0.14, 4.5, 12, "Plumber", "https://img").
			AddRow(bareID, "Bare Ltd", "", "", "", "", "", "", "", "", "", notEnriched,
				false, 0, 0.0, 0.0, 0.0, 0, "", ""))
	mock.ExpectQuery("FROM employees").
		WithArgs([]uuid.UUID{acmeID, bareID}).
		WillReturnRows(pgxmock.NewRows(employeeColumnNames).
			AddRow(acmeID, "Jane Doe", "Jane", "Doe", "Founder", "Acme Limited", "jane@acme.co.uk", 1049, "t", "u", "s").
			AddRow(acmeID, "John Roe", "John", "Roe", "Manager", "Acme Limited", "", 1021, "t", "u", "s"))

	companies, err := repo.ListCompanies(context.Background(), queryID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(companies))
	}
	acme := companies[0]
	if acme.GMapsData == nil || acme.GMapsData.SearchPosition != 1 || acme.GMapsData.Thumbnail != "https://img" {
		t.Fatalf("unexpected maps data: %+v", acme.GMapsData)
	}
	if len(acme.Employees) != 2 || acme.Employees[0].FullName != "Jane Doe" || acme.Employees[0].RankScore != 1049 {
		t.Fatalf("unexpected employees: %+v", acme.Employees)
	}
	if acme.EnrichedAt == nil || !acme.EnrichedAt.Equal(enrichedAt) {
		t.Fatalf("unexpected enriched_at: %v", acme.EnrichedAt)
	}
	if companies[1].GMapsData != nil || len(companies[1].Employees) != 0 {
		t.Fatalf("expected bare company without maps data or employees: %+v", companies[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGXLeadsRepository_FindDoneByWebsites(t *testing.T) {
	repo, mock := newMockRepo(t)

	found, err := repo.FindDoneByWebsites(context.Background(), nil)
	if err != nil || len(found) != 0 {
		t.Fatalf("expected empty result without queries, got %v, %v", found, err)
	}

	id := uuid.New()
	websites := []string{"acme.co.uk", "fresh.co.uk"}
	enrichedAt := time.Now().UTC()
	mock.ExpectQuery(`SELECT DISTINCT ON .* WHERE c\.website = ANY\(\$1\) AND c\.enriched_at IS NOT NULL`).
		WithArgs(websites).
		WillReturnRows(pgxmock.NewRows(companyColumnNames).
			AddRow(id, "Acme Ltd", "acme.co.uk", "", "", "", "", "", "", "", "", &enrichedAt,
				false, 0, 0.0, 0.0, 0.0, 0, "", ""))
	mock.ExpectQuery("FROM employees").
		WithArgs([]uuid.UUID{id}).
		WillReturnRows(pgxmock.NewRows(employeeColumnNames))

	found, err = repo.FindDoneByWebsites(context.Background(), websites)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acme, ok := found["acme.co.uk"]
	if !ok || !acme.Done || acme.ID != id {
		t.Fatalf("expected acme to be marked done, got %+v", found)
	}
	if _, ok := found["fresh.co.uk"]; ok {
		t.Fatalf("did not expect fresh.co.uk in result")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGXLeadsRepository_LinkCompany(t *testing.T) {
	repo, mock := newMockRepo(t)
	queryID, companyID := uuid.New(), uuid.New()

	mock.ExpectExec("INSERT INTO query_companies .* ON CONFLICT DO NOTHING").
		WithArgs(queryID, companyID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO query_companies").
		WithArgs(queryID, companyID).
		WillReturnError(errors.New("foreign key violation"))

	if err := repo.LinkCompany(context.Background(), queryID, companyID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.LinkCompany(context.Background(), queryID, companyID); err == nil {
		t.Fatalf("expected link error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
