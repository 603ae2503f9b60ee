package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is the single password shared by all demo identities.
const DemoPassword = "demo123"

// demoPasswordHash is computed once (MinCost; these are throwaway demo
// credentials) so the directory does not pay the hashing cost per construction.
var demoPasswordHash []byte

func init() {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	demoPasswordHash = hash
}

// demoTimestamp is fixed so the directory is identical across calls.
var demoTimestamp = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

// MockDirectory returns the fixed in-memory directory of demo identities used
// when the remote identity service is unconfigured.
func MockDirectory() []User {
	now := demoTimestamp
	return []User{
		{
			ID:            "1",
			Name:          "John Kamau",
			Email:         "john.student@school.ke",
			Role:          RoleStudent,
			InstitutionID: "inst1",
			ProfileImage:  "https://images.pexels.com/photos/2379004/pexels-photo-2379004.jpeg?auto=compress&cs=tinysrgb&w=400",
			IsActive:      true,
			PasswordHash:  demoPasswordHash,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "2",
			Name:          "Mary Wanjiku",
			Email:         "mary.teacher@school.ke",
			Role:          RoleTeacher,
			InstitutionID: "inst1",
			ProfileImage:  "https://images.pexels.com/photos/3785079/pexels-photo-3785079.jpeg?auto=compress&cs=tinysrgb&w=400",
			IsActive:      true,
			PasswordHash:  demoPasswordHash,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "3",
			Name:          "Samuel Kiprop",
			Email:         "admin@brightfuture.ke",
			Role:          RoleAdmin,
			InstitutionID: "inst1",
			ProfileImage:  "https://images.pexels.com/photos/2182970/pexels-photo-2182970.jpeg?auto=compress&cs=tinysrgb&w=400",
			IsActive:      true,
			PasswordHash:  demoPasswordHash,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}
