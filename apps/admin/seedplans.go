package main

import (
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

// seedPlans loads the demo fee schedule; plans already present (same name and
// institution) are skipped.
func (cli *commandLine) seedPlans() error {
	query := `
		INSERT INTO payment_plan (name, amount, currency, term, due_date, description, grade_level, institution_id)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (SELECT 1 FROM payment_plan WHERE name = $1 AND institution_id = $8)`
	for _, plan := range dummydb.DemoPlans() {
		_, err := cli.db.Exec(
			query,
			plan.Name, plan.Amount, plan.Currency, plan.Term, plan.DueDate,
			plan.Description, plan.GradeLevel, plan.InstitutionID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
