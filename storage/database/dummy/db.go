// Package dummydb provides in-memory repositories for demo mode and tests.
package dummydb

import (
	"sync"

	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		user    *userTable
		plan    *planTable
		payment *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	planTable struct {
		sync.RWMutex
		table map[string]*payment.Plan
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Record // keyed by reference number
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		plan:    &planTable{table: make(map[string]*payment.Plan)},
		payment: &paymentTable{table: make(map[string]*payment.Record)},
	}
	return db, nil
}
