// mitra/stub/fixtures.go
package stub

import "mitra/mitra/types"

// DemoUser is a login fixture. Passwords are plain text; the stub exists for
// offline development and tests only.
type DemoUser struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     string
	CRPID    string
	Grade    string
	Subject  string
	Location string
}

func demoUsers() []DemoUser {
	return []DemoUser{
		{ID: "crp1", Email: "crp1@shiksha.com", Password: "password123", Name: "Rajesh Kumar", Role: types.RoleCRP},
		{ID: "crp2", Email: "crp2@shiksha.com", Password: "password123", Name: "Priya Sharma", Role: types.RoleCRP},
		{ID: "T1", Email: "amit@school.com", Password: "teacher123", Name: "Amit Singh", Role: types.RoleTeacher, CRPID: "crp1", Grade: "5", Subject: "Math", Location: "Rural"},
		{ID: "T2", Email: "sneha@school.com", Password: "teacher123", Name: "Sneha Patel", Role: types.RoleTeacher, CRPID: "crp1", Grade: "3", Subject: "Science", Location: "Urban"},
		{ID: "T3", Email: "rahul@school.com", Password: "teacher123", Name: "Rahul Verma", Role: types.RoleTeacher, CRPID: "crp1", Grade: "7", Subject: "English", Location: "Semi-Urban"},
		{ID: "T4", Email: "kavita@school.com", Password: "teacher123", Name: "Kavita Devi", Role: types.RoleTeacher, CRPID: "crp2", Grade: "4", Subject: "Hindi", Location: "Rural"},
	}
}
