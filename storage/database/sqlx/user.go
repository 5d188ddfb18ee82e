package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/storage/database"
)

// userColumns selects a user row; a missing email reads as "".
func userColumns(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf(`%[1]sid, %[1]sfirst_name, %[1]slast_name, %[1]susername, COALESCE(%[1]semail, '') AS email,
		%[1]srole, %[1]sis_active, %[1]smust_change_password, %[1]spassword_hash, %[1]screated_at, %[1]supdated_at, %[1]slast_login`, p)
}

const studentProfileColumns = `p.user_id, p.father_name, p.mother_name, p.phone, p.address, p.date_of_birth,
	p.admission_no, p.student_class, p.section, p.roll_no, p.fee_paid`

// user fields that may be ordered on
var userOrderings = map[string]bool{
	"first_name": true,
	"last_name":  true,
	"username":   true,
	"email":      true,
	"role":       true,
	"created_at": true,
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repo{db: db}}
}

func (r *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(col, val string, exists error) error {
		if val == "" {
			return nil
		}
		var w where
		w.add(col+" = ?", val)
		if len(excludedUsers) > 0 {
			ids := make([]string, len(excludedUsers))
			for i, u := range excludedUsers {
				ids[i] = u.ID
			}
			w.add("id NOT IN (?)", ids)
		}
		q, args, err := bind(`SELECT EXISTS (SELECT 1 FROM "user"`+w.String()+`)`, w.args...)
		if err != nil {
			return err
		}
		var found bool
		if err := r.exec(ctx).GetContext(ctx, &found, q, args...); err != nil {
			return errors.Wrap(err, "checking "+col)
		}
		if found {
			return exists
		}
		return nil
	}
	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var found bool
	err := r.exec(ctx).GetContext(ctx, &found, `SELECT EXISTS (SELECT 1 FROM "user" WHERE username = $1)`, username)
	return found, errors.Wrap(err, "checking username")
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		INSERT INTO "user" (id, first_name, last_name, username, email, role, is_active, must_change_password,
			password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.exec(ctx).ExecContext(ctx, q,
		usr.ID, usr.FirstName, usr.LastName, usr.Username, usr.Email, usr.Role, usr.IsActive, usr.MustChangePassword,
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin)
	if err != nil {
		return user.User{}, database.ConflictFromError(err)
	}
	return usr, nil
}

func (r *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		if s := strings.ToLower(filter.Search); s != "" {
			like := "%" + s + "%"
			w.add("(lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR username LIKE ? OR email LIKE ?)", like, like, like, like)
		}
		if len(filter.Roles) > 0 {
			w.add("role IN (?)", filter.Roles)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	orderBy := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		if userOrderings[ord.Field] {
			orderBy = append(orderBy, ord.String())
		}
	}
	orderBy = append(orderBy, "created_at ASC", "username ASC")

	users := make([]user.User, 0)
	q := `SELECT ` + userColumns("") + ` FROM "user"` + w.String() + ` ORDER BY ` + strings.Join(orderBy, ", ")
	if err := r.selectIn(ctx, &users, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (r *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	q, args, err := bind(`SELECT `+userColumns("")+` FROM "user"`+w.String()+` LIMIT 1`, w.args...)
	if err != nil {
		return user.User{}, err
	}
	var usr user.User
	if err := r.exec(ctx).GetContext(ctx, &usr, q, args...); err != nil {
		if database.IsNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		UPDATE "user" SET first_name = $2, last_name = $3, username = $4, email = NULLIF($5, ''), is_active = $6,
			must_change_password = $7, password_hash = $8, updated_at = $9, last_login = $10
		WHERE id = $1`
	res, err := r.exec(ctx).ExecContext(ctx, q,
		usr.ID, usr.FirstName, usr.LastName, usr.Username, usr.Email, usr.IsActive,
		usr.MustChangePassword, usr.PasswordHash, usr.UpdatedAt.UTC(), usr.LastLogin)
	if err != nil {
		return user.User{}, database.ConflictFromError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

// DeleteUsersByID relies on the foreign keys: profiles and student records cascade, authored
// records are set to NULL.
func (r *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return errors.Wrap(r.execIn(ctx, `DELETE FROM "user" WHERE id IN (?)`, ids), "deleting users")
}

func (r *userRepository) CountUsers(ctx context.Context, role user.Role) (int, error) {
	var (
		n   int
		err error
	)
	if role == "" {
		err = r.exec(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM "user"`)
	} else {
		err = r.exec(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM "user" WHERE role = $1`, role)
	}
	return n, errors.Wrap(err, "counting users")
}

func (r *userRepository) CreateTeacherProfile(ctx context.Context, p user.TeacherProfile) error {
	const q = `
		INSERT INTO teacher_profile (user_id, designation, subject, assigned_class, assigned_section, phone)
		VALUES (:user_id, :designation, :subject, :assigned_class, :assigned_section, :phone)`
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, p)
	return database.ConflictFromError(err)
}

func (r *userRepository) GetTeacherProfile(ctx context.Context, userID string) (user.TeacherProfile, error) {
	var p user.TeacherProfile
	err := r.exec(ctx).GetContext(ctx, &p, `
		SELECT user_id, designation, subject, assigned_class, assigned_section, phone
		FROM teacher_profile WHERE user_id = $1`, userID)
	if err != nil {
		if database.IsNoRows(err) {
			return p, user.ErrProfileNotFound
		}
		return p, errors.Wrap(err, "getting teacher profile")
	}
	return p, nil
}

func (r *userRepository) UpdateTeacherProfile(ctx context.Context, p user.TeacherProfile) error {
	const q = `
		UPDATE teacher_profile SET designation = :designation, subject = :subject, assigned_class = :assigned_class,
			assigned_section = :assigned_section, phone = :phone
		WHERE user_id = :user_id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, p)
	if err != nil {
		return errors.Wrap(err, "updating teacher profile")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrProfileNotFound
	}
	return nil
}

func (r *userRepository) MaxRollNo(ctx context.Context, class, section string) (int, error) {
	var highest int
	err := r.exec(ctx).GetContext(ctx, &highest, `
		SELECT COALESCE(MAX(roll_no), 0) FROM student_profile WHERE student_class = $1 AND section = $2`, class, section)
	return highest, errors.Wrap(err, "reading max roll number")
}

func (r *userRepository) CreateStudentProfile(ctx context.Context, p user.StudentProfile) error {
	const q = `
		INSERT INTO student_profile (user_id, father_name, mother_name, phone, address, date_of_birth,
			admission_no, student_class, section, roll_no, fee_paid)
		VALUES (:user_id, :father_name, :mother_name, :phone, :address, :date_of_birth,
			:admission_no, :student_class, :section, :roll_no, :fee_paid)`
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, p)
	return database.ConflictFromError(err)
}

func (r *userRepository) GetStudentProfile(ctx context.Context, userID string) (user.StudentProfile, error) {
	var p user.StudentProfile
	err := r.exec(ctx).GetContext(ctx, &p, `SELECT `+studentProfileColumns+` FROM student_profile p WHERE p.user_id = $1`, userID)
	if err != nil {
		if database.IsNoRows(err) {
			return p, user.ErrProfileNotFound
		}
		return p, errors.Wrap(err, "getting student profile")
	}
	p.DateOfBirth = p.DateOfBirth.UTC()
	return p, nil
}

// studentRow scans a user joined with its student profile.
type studentRow struct {
	user.User
	user.StudentProfile
}

func (r *userRepository) QueryStudents(ctx context.Context, filter user.StudentFilter) ([]user.Student, error) {
	var w where
	if filter.Class != "" {
		w.add("p.student_class = ?", filter.Class)
	}
	if filter.Section != "" {
		w.add("p.section = ?", filter.Section)
	}
	if len(filter.IDs) > 0 {
		w.add("p.user_id IN (?)", filter.IDs)
	}
	if filter.Active != nil {
		w.add("u.is_active = ?", *filter.Active)
	}

	var rows []studentRow
	q := `SELECT ` + userColumns("u") + `, ` + studentProfileColumns + `
		FROM student_profile p JOIN "user" u ON u.id = p.user_id` + w.String() + `
		ORDER BY p.student_class, p.section, p.roll_no`
	if err := r.selectIn(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	students := make([]user.Student, len(rows))
	for i, row := range rows {
		row.StudentProfile.DateOfBirth = row.StudentProfile.DateOfBirth.UTC()
		students[i] = user.Student{User: row.User, Profile: row.StudentProfile}
	}
	return students, nil
}

func (r *userRepository) SetFeePaid(ctx context.Context, paid bool, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.execIn(ctx, `UPDATE student_profile SET fee_paid = ? WHERE user_id IN (?)`, paid, userIDs)
}
