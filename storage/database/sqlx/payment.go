package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core/payment"
)

type planRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Amount        int       `db:"amount"`
	Currency      string    `db:"currency"`
	Term          string    `db:"term"`
	DueDate       time.Time `db:"due_date"`
	Description   string    `db:"description"`
	GradeLevel    string    `db:"grade_level"`
	InstitutionID string    `db:"institution_id"`
}

func (row planRow) plan() payment.Plan {
	return payment.Plan{
		ID:            row.ID,
		Name:          row.Name,
		Amount:        row.Amount,
		Currency:      row.Currency,
		Term:          row.Term,
		DueDate:       row.DueDate,
		Description:   row.Description,
		GradeLevel:    row.GradeLevel,
		InstitutionID: row.InstitutionID,
	}
}

const planColumns = `id, name, amount, currency, term, due_date, description, grade_level, institution_id`

type planRepository struct {
	db *sqlx.DB
}

var _ payment.PlanRepository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *sqlx.DB) payment.PlanRepository {
	return &planRepository{db: db}
}

func (repo *planRepository) QueryPlans(ctx context.Context, gradeLevel, institutionID string) ([]payment.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM payment_plan
		WHERE ($1 = '' OR grade_level = $1)
		  AND ($2 = '' OR institution_id = $2)
		ORDER BY due_date`
	var rows []planRow
	if err := repo.db.SelectContext(ctx, &rows, query, gradeLevel, institutionID); err != nil {
		return nil, err
	}
	plans := make([]payment.Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, row.plan())
	}
	return plans, nil
}

func (repo *planRepository) GetPlanByID(ctx context.Context, id string) (payment.Plan, error) {
	var row planRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+planColumns+` FROM payment_plan WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return payment.Plan{}, payment.ErrPlanNotFound
	}
	if err != nil {
		return payment.Plan{}, err
	}
	return row.plan(), nil
}

type recordRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	PlanID    string    `db:"plan_id"`
	Amount    int       `db:"amount"`
	Currency  string    `db:"currency"`
	Status    string    `db:"status"`
	Method    string    `db:"method"`
	Reference string    `db:"reference_number"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row recordRow) record() payment.Record {
	return payment.Record{
		ID:        row.ID,
		StudentID: row.StudentID,
		PlanID:    row.PlanID,
		Amount:    row.Amount,
		Currency:  row.Currency,
		Status:    payment.Status(row.Status),
		Method:    row.Method,
		Reference: row.Reference,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

const recordColumns = `id, student_id, plan_id, amount, currency, status, method, reference_number, created_at, updated_at`

type recordRepository struct {
	db *sqlx.DB
}

var _ payment.RecordRepository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *sqlx.DB) payment.RecordRepository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) CreateRecord(ctx context.Context, rec payment.Record) (payment.Record, error) {
	query := `
		INSERT INTO payment (student_id, plan_id, amount, currency, status, method, reference_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + recordColumns
	var row recordRow
	err := repo.db.GetContext(
		ctx, &row, query,
		rec.StudentID, rec.PlanID, rec.Amount, rec.Currency, rec.Status, rec.Method,
		rec.Reference, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return payment.Record{}, err
	}
	return row.record(), nil
}

func (repo *recordRepository) GetRecordByReference(ctx context.Context, ref string) (payment.Record, error) {
	var row recordRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM payment WHERE reference_number = $1`, ref)
	if err == sql.ErrNoRows {
		return payment.Record{}, payment.ErrRecordNotFound
	}
	if err != nil {
		return payment.Record{}, err
	}
	return row.record(), nil
}

func (repo *recordRepository) QueryRecordsByStudent(ctx context.Context, studentID string) ([]payment.Record, error) {
	var rows []recordRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT `+recordColumns+` FROM payment WHERE student_id = $1 ORDER BY created_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	recs := make([]payment.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs, nil
}

func (repo *recordRepository) UpdateRecordStatus(ctx context.Context, ref string, status payment.Status) (payment.Record, error) {
	var row recordRow
	err := repo.db.GetContext(
		ctx, &row,
		`UPDATE payment SET status = $2, updated_at = $3 WHERE reference_number = $1 RETURNING `+recordColumns,
		ref, status, time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		return payment.Record{}, payment.ErrRecordNotFound
	}
	if err != nil {
		return payment.Record{}, err
	}
	return row.record(), nil
}
