package inmemdb

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

var errNoSuchUser = errors.New("foreign key violation: user does not exist")

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, ex := range excludedUsers {
		if ex.ID == usr.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// conflicting checks the unique keys of the user table. Must be called with db.mu held.
func (repo *userRepository) conflicting(usr user.User) error {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if u.Username == usr.Username {
			return &core.ConflictError{Constraint: user.ConstraintUsername}
		}
		if usr.Email != "" && u.Email == usr.Email {
			return &core.ConflictError{Constraint: user.ConstraintEmail}
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.conflicting(usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = usr
	onRollback(ctx, func() { delete(repo.db.users, usr.ID) })
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter == nil || matches(usr, filter) {
			users = append(users, usr)
		}
	}
	sortUsers(users, ordering)
	return users, nil
}

func matches(usr user.User, filter *user.QueryFilter) bool {
	if s := strings.ToLower(filter.Search); s != "" {
		if !strings.Contains(strings.ToLower(usr.FirstName), s) &&
			!strings.Contains(strings.ToLower(usr.LastName), s) &&
			!strings.Contains(usr.Username, s) &&
			!strings.Contains(usr.Email, s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, r := range filter.Roles {
			if usr.Role == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

// sortUsers applies ordering, falling back to creation time then username.
func sortUsers(users []user.User, ordering []core.DBOrdering) {
	less := func(a, b user.User, field string) int {
		var x, y string
		switch field {
		case "first_name":
			x, y = a.FirstName, b.FirstName
		case "last_name":
			x, y = a.LastName, b.LastName
		case "username":
			x, y = a.Username, b.Username
		case "email":
			x, y = a.Email, b.Email
		case "role":
			x, y = string(a.Role), string(b.Role)
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		default:
			return 0
		}
		return strings.Compare(x, y)
	}
	ordering = append(slices.Clone(ordering), core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "username", Ascending: true})
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := less(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case filter.UsernameOrEmail != "":
			if usr.Username == filter.UsernameOrEmail || (usr.Email != "" && usr.Email == filter.UsernameOrEmail) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	old, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.conflicting(usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = usr
	onRollback(ctx, func() { repo.db.users[old.ID] = old })
	return usr, nil
}

// DeleteUsersByID removes identities with their profiles and their student records. Records
// they wrote for others lose their attribution.
func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	for _, id := range ids {
		usr, ok := db.users[id]
		if !ok {
			continue
		}
		delete(db.users, id)
		onRollback(ctx, func() { db.users[id] = usr })

		if p, ok := db.teachers[id]; ok {
			delete(db.teachers, id)
			onRollback(ctx, func() { db.teachers[id] = p })
		}
		if p, ok := db.students[id]; ok {
			delete(db.students, id)
			onRollback(ctx, func() { db.students[id] = p })
		}

		for key, rec := range db.attendance {
			switch {
			case rec.StudentID == id:
				delete(db.attendance, key)
			case rec.MarkedBy != nil && *rec.MarkedBy == id:
				upd := rec
				upd.MarkedBy = nil
				db.attendance[key] = upd
			default:
				continue
			}
			onRollback(ctx, func() { db.attendance[key] = rec })
		}
		for key, m := range db.marks {
			switch {
			case m.StudentID == id:
				delete(db.marks, key)
			case m.UploadedBy != nil && *m.UploadedBy == id:
				upd := m
				upd.UploadedBy = nil
				db.marks[key] = upd
			default:
				continue
			}
			onRollback(ctx, func() { db.marks[key] = m })
		}
		for key, f := range db.feeRecords {
			if f.StudentID == id {
				delete(db.feeRecords, key)
				onRollback(ctx, func() { db.feeRecords[key] = f })
			}
		}
		for key, n := range db.notices {
			if n.CreatedBy != nil && *n.CreatedBy == id {
				upd := n
				upd.CreatedBy = nil
				db.notices[key] = upd
				onRollback(ctx, func() { db.notices[key] = n })
			}
		}
		for key, hw := range db.homework {
			if hw.TeacherID != nil && *hw.TeacherID == id {
				upd := hw
				upd.TeacherID = nil
				db.homework[key] = upd
				onRollback(ctx, func() { db.homework[key] = hw })
			}
		}
	}
	return nil
}

func (repo *userRepository) CountUsers(_ context.Context, role user.Role) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, usr := range repo.db.users {
		if role == "" || usr.Role == role {
			n++
		}
	}
	return n, nil
}

func (repo *userRepository) CreateTeacherProfile(ctx context.Context, p user.TeacherProfile) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[p.UserID]; !ok {
		return errNoSuchUser
	}
	if _, ok := repo.db.teachers[p.UserID]; ok {
		return &core.ConflictError{Constraint: "teacher_profile_pkey"}
	}
	repo.db.teachers[p.UserID] = p
	onRollback(ctx, func() { delete(repo.db.teachers, p.UserID) })
	return nil
}

func (repo *userRepository) GetTeacherProfile(_ context.Context, userID string) (user.TeacherProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.teachers[userID]; ok {
		return p, nil
	}
	return user.TeacherProfile{}, user.ErrProfileNotFound
}

func (repo *userRepository) UpdateTeacherProfile(ctx context.Context, p user.TeacherProfile) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	old, ok := repo.db.teachers[p.UserID]
	if !ok {
		return user.ErrProfileNotFound
	}
	repo.db.teachers[p.UserID] = p
	onRollback(ctx, func() { repo.db.teachers[old.UserID] = old })
	return nil
}

func (repo *userRepository) MaxRollNo(_ context.Context, class, section string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var highest int
	for _, p := range repo.db.students {
		if p.Class == class && p.Section == section && p.RollNo > highest {
			highest = p.RollNo
		}
	}
	return highest, nil
}

func (repo *userRepository) CreateStudentProfile(ctx context.Context, p user.StudentProfile) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[p.UserID]; !ok {
		return errNoSuchUser
	}
	for _, other := range repo.db.students {
		if other.UserID == p.UserID {
			return &core.ConflictError{Constraint: "student_profile_pkey"}
		}
		if other.Class == p.Class && other.Section == p.Section && other.RollNo == p.RollNo {
			return &core.ConflictError{Constraint: user.ConstraintRollNo}
		}
		if other.AdmissionNo == p.AdmissionNo {
			return &core.ConflictError{Constraint: user.ConstraintAdmissionNo}
		}
	}
	repo.db.students[p.UserID] = p
	onRollback(ctx, func() { delete(repo.db.students, p.UserID) })
	return nil
}

func (repo *userRepository) GetStudentProfile(_ context.Context, userID string) (user.StudentProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.students[userID]; ok {
		return p, nil
	}
	return user.StudentProfile{}, user.ErrProfileNotFound
}

func (repo *userRepository) QueryStudents(_ context.Context, filter user.StudentFilter) ([]user.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids map[string]bool
	if len(filter.IDs) > 0 {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	students := make([]user.Student, 0)
	for id, p := range repo.db.students {
		usr, ok := repo.db.users[id]
		if !ok {
			continue
		}
		if filter.Class != "" && p.Class != filter.Class {
			continue
		}
		if filter.Section != "" && p.Section != filter.Section {
			continue
		}
		if ids != nil && !ids[id] {
			continue
		}
		if filter.Active != nil && usr.IsActive != *filter.Active {
			continue
		}
		students = append(students, user.Student{User: usr, Profile: p})
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i].Profile, students[j].Profile
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return a.RollNo < b.RollNo
	})
	return students, nil
}

func (repo *userRepository) SetFeePaid(ctx context.Context, paid bool, userIDs ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range userIDs {
		p, ok := repo.db.students[id]
		if !ok || p.FeePaid == paid {
			continue
		}
		old := p
		p.FeePaid = paid
		repo.db.students[id] = p
		onRollback(ctx, func() { repo.db.students[id] = old })
	}
	return nil
}
