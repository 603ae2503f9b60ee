package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/payment"
)

type planRepository struct {
	db *planTable
}

var _ payment.PlanRepository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *DB) payment.PlanRepository {
	return &planRepository{db: db.plan}
}

// SeedDemoPlans loads the fixed demo fee schedule into the plan table.
func SeedDemoPlans(db *DB) {
	db.plan.Lock()
	defer db.plan.Unlock()
	for _, plan := range DemoPlans() {
		plan := plan
		db.plan.table[plan.ID] = &plan
	}
}

// DemoPlans is the demo fee schedule served when no remote table exists.
func DemoPlans() []payment.Plan {
	return []payment.Plan{
		{
			ID:            "plan-1",
			Name:          "Grade 3 Term 1 Fees",
			Amount:        20000,
			Currency:      "KES",
			Term:          "Term 1",
			DueDate:       time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
			Description:   "School fees for Term 1 2025",
			GradeLevel:    "grade-3",
			InstitutionID: "inst1",
		},
		{
			ID:            "plan-2",
			Name:          "Grade 3 Activity Fees",
			Amount:        5000,
			Currency:      "KES",
			Term:          "Term 1",
			DueDate:       time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC),
			Description:   "Activity and materials fees",
			GradeLevel:    "grade-3",
			InstitutionID: "inst1",
		},
		{
			ID:            "plan-3",
			Name:          "Grade 3 Lunch Program",
			Amount:        8000,
			Currency:      "KES",
			Term:          "Term 1",
			DueDate:       time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			Description:   "Nutritious lunch program for Term 1",
			GradeLevel:    "grade-3",
			InstitutionID: "inst1",
		},
	}
}

func (repo *planRepository) QueryPlans(_ context.Context, gradeLevel, institutionID string) ([]payment.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	plans := make([]payment.Plan, 0, len(repo.db.table))
	for _, plan := range repo.db.table {
		if gradeLevel != "" && plan.GradeLevel != gradeLevel {
			continue
		}
		if institutionID != "" && plan.InstitutionID != institutionID {
			continue
		}
		plans = append(plans, *plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].DueDate.Before(plans[j].DueDate) })
	return plans, nil
}

func (repo *planRepository) GetPlanByID(_ context.Context, id string) (payment.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if plan, ok := repo.db.table[id]; ok {
		return *plan, nil
	}
	return payment.Plan{}, payment.ErrPlanNotFound
}

type recordRepository struct {
	db *paymentTable
}

var _ payment.RecordRepository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) payment.RecordRepository {
	return &recordRepository{db: db.payment}
}

func (repo *recordRepository) CreateRecord(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	repo.db.table[rec.Reference] = &rec
	return rec, nil
}

func (repo *recordRepository) GetRecordByReference(_ context.Context, ref string) (payment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[ref]; ok {
		return *rec, nil
	}
	return payment.Record{}, payment.ErrRecordNotFound
}

func (repo *recordRepository) QueryRecordsByStudent(_ context.Context, studentID string) ([]payment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []payment.Record
	for _, rec := range repo.db.table {
		if rec.StudentID == studentID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

func (repo *recordRepository) UpdateRecordStatus(_ context.Context, ref string, status payment.Status) (payment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[ref]
	if !ok {
		return payment.Record{}, payment.ErrRecordNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	return *rec, nil
}
