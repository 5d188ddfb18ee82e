package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"

	"github.com/vidhyasetu/backend/core"
)

// unique constraints the storage layer reports in *core.ConflictError
const (
	ConstraintUsername    = "user_username_key"
	ConstraintEmail       = "user_email_key"
	ConstraintRollNo      = "student_profile_roll_no_key"
	ConstraintAdmissionNo = "student_profile_admission_no_key"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrUsernameExists  = errors.New("a user with this username already exists")
	ErrNoAssignedScope = errors.New("no class and section assigned to this teacher")
	errInvalidPassword = errors.New("invalid password")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists. Empty values are not checked.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		UsernameExists(ctx context.Context, username string) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on names, username or email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
		CountUsers(ctx context.Context, role Role) (int, error)

		CreateTeacherProfile(ctx context.Context, p TeacherProfile) error
		GetTeacherProfile(ctx context.Context, userID string) (TeacherProfile, error)
		UpdateTeacherProfile(ctx context.Context, p TeacherProfile) error

		// MaxRollNo returns the highest roll number in a class + section, 0 when empty.
		MaxRollNo(ctx context.Context, class, section string) (int, error)
		CreateStudentProfile(ctx context.Context, p StudentProfile) error
		GetStudentProfile(ctx context.Context, userID string) (StudentProfile, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		SetFeePaid(ctx context.Context, paid bool, userIDs ...string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		RegisterStudent(ctx context.Context, actor User, ns NewStudent) (Registration, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		Count(ctx context.Context, role Role) (int, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error

		TeacherProfile(ctx context.Context, userID string) (TeacherProfile, error)
		UpdateTeacherProfile(ctx context.Context, userID string, ut UpdateTeacherProfile) (TeacherProfile, error)
		TeacherScope(ctx context.Context, actor User) (Scope, error)
		StudentProfile(ctx context.Context, userID string) (StudentProfile, error)
		Students(ctx context.Context, filter StudentFilter) ([]Student, error)
		SetFeePaid(ctx context.Context, paid bool, studentIDs ...string) error
	}

	service struct {
		conf    *core.Config
		repo    Repository
		tx      core.Transactor
		mailSvc core.EmailService
		logger  core.Logger
		tokens  tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, tx core.Transactor, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		conf:    conf,
		repo:    repo,
		tx:      tx,
		mailSvc: mailSvc,
		logger:  logger,
		tokens:  newTokenGenerator(conf.SecretKey, conf.School.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// uniquenessError turns a unique violation on the user table into a field error.
func uniquenessError(err error) error {
	switch {
	case core.IsConflictOn(err, ConstraintUsername):
		return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	case core.IsConflictOn(err, ConstraintEmail):
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return err
}

// Create adds an admin or a teacher; a teacher gets their profile in the same transaction.
func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if nu.Role == RoleStudent {
		return User{}, core.NewFieldError("role", errStudentsRegisterText)
	}

	now := core.NowFunc().UTC()
	usr := User{
		ID:        uuid.NewString(),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
			return uniquenessError(err)
		}
		if usr.Role != RoleTeacher {
			return nil
		}
		var ut UpdateTeacherProfile
		if nu.Teacher != nil {
			ut = *nu.Teacher
		}
		return errors.Wrap(svc.repo.CreateTeacherProfile(ctx, ut.apply(TeacherProfile{UserID: usr.ID})), "creating teacher profile")
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// RegisterStudent creates a student identity with its profile. Roll number, username and
// (unless provided) admission number are generated; collisions with concurrent registrations
// are retried with fresh values.
func (svc *service) RegisterStudent(ctx context.Context, actor User, ns NewStudent) (Registration, error) {
	if !CanRegisterStudents(actor) {
		return Registration{}, core.ErrPermissionDenied
	}
	if ns.dob.IsZero() {
		ns.clean()
		if err := ns.parseDOB(); err != nil {
			return Registration{}, err
		}
	}

	now := core.NowFunc().UTC()
	tmpPwd := TemporaryPassword(ns.FirstName, ns.dob)
	usr := User{
		FirstName:          ns.FirstName,
		LastName:           ns.LastName,
		Email:              ns.Email,
		Role:               RoleStudent,
		IsActive:           true,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := usr.SetPassword(tmpPwd); err != nil {
		return Registration{}, errors.Wrap(err, "setting password")
	}

	retryable := []string{ConstraintRollNo, ConstraintUsername}
	if ns.AdmissionNo == "" {
		retryable = append(retryable, ConstraintAdmissionNo)
	}

	var (
		student Student
		attempt int
	)
	backoff := retry.NewExponential(5 * time.Millisecond)
	backoff = retry.WithCappedDuration(200*time.Millisecond, backoff)
	backoff = retry.WithJitterPercent(50, backoff)
	backoff = retry.WithMaxRetries(svc.conf.School.RollNoMaxRetries, backoff)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		student, err = svc.registerOnce(ctx, usr, ns)
		if err == nil {
			return nil
		}
		if core.IsConflictOn(err, retryable...) {
			svc.logger.Warn(fmt.Sprintf("student registration conflict (attempt %d): %v", attempt, err),
				map[string]interface{}{"class": ns.Class, "section": ns.Section})
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		switch {
		case core.IsConflictOn(err, ConstraintAdmissionNo):
			return Registration{}, core.NewFieldError("admission_no", errAdmissionNoExists)
		case core.IsConflictOn(err, ConstraintEmail):
			return Registration{}, uniquenessError(err)
		}
		return Registration{}, errors.Wrap(err, "registering student")
	}
	return Registration{Student: student, TemporaryPassword: tmpPwd, Attempts: attempt}, nil
}

func (svc *service) registerOnce(ctx context.Context, usr User, ns NewStudent) (Student, error) {
	var student Student
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		uname, err := svc.freeUsername(ctx, UsernameBase(ns.FirstName, ns.LastName, ns.dob))
		if err != nil {
			return err
		}
		maxRoll, err := svc.repo.MaxRollNo(ctx, ns.Class, ns.Section)
		if err != nil {
			return errors.Wrap(err, "reading max roll number")
		}

		usr.ID = uuid.NewString()
		usr.Username = uname
		if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
			return err
		}

		admissionNo := ns.AdmissionNo
		if admissionNo == "" {
			admissionNo = generateAdmissionNo(usr.CreatedAt)
		}
		profile := StudentProfile{
			UserID:      usr.ID,
			FatherName:  ns.FatherName,
			MotherName:  ns.MotherName,
			Phone:       ns.Phone,
			Address:     ns.Address,
			DateOfBirth: ns.dob,
			AdmissionNo: admissionNo,
			Class:       ns.Class,
			Section:     ns.Section,
			RollNo:      NextRollNo(maxRoll),
		}
		if err := svc.repo.CreateStudentProfile(ctx, profile); err != nil {
			return err
		}
		student = Student{User: usr, Profile: profile}
		return nil
	})
	return student, err
}

// freeUsername returns the first unused candidate for base.
func (svc *service) freeUsername(ctx context.Context, base string) (string, error) {
	for n := 0; ; n++ {
		candidate := UsernameCandidate(base, n)
		exists, err := svc.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrap(err, "checking username")
		}
		if !exists {
			return candidate, nil
		}
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, uniquenessError(err)
	}
	return usr, nil
}

// Delete removes identities with their profiles and student records.
// Records they authored keep existing without attribution.
func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *service) Count(ctx context.Context, role Role) (int, error) {
	return svc.repo.CountUsers(ctx, role)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := core.NowFunc().UTC()
	usr.LastLogin = &now
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangePassword replaces the password of a logged-in user and lifts the forced change.
func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(errInvalidPassword, core.FieldError{Field: "old_password", Error: errInvalidPassword.Error()})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.MustChangePassword = false
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return nil
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *service) sendPasswordResetMail(usr User) error {
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":     usr.Name(),
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    token,
		},
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalid := core.NewValidationError(errInvalidToken)

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.MustChangePassword = false
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) TeacherProfile(ctx context.Context, userID string) (TeacherProfile, error) {
	return svc.repo.GetTeacherProfile(ctx, userID)
}

func (svc *service) UpdateTeacherProfile(ctx context.Context, userID string, ut UpdateTeacherProfile) (TeacherProfile, error) {
	p, err := svc.repo.GetTeacherProfile(ctx, userID)
	if err != nil {
		return TeacherProfile{}, err
	}
	ut.clean()
	p = ut.apply(p)
	if err := svc.repo.UpdateTeacherProfile(ctx, p); err != nil {
		return TeacherProfile{}, errors.Wrap(err, "updating teacher profile")
	}
	return p, nil
}

// TeacherScope returns the class + section a teacher works on.
func (svc *service) TeacherScope(ctx context.Context, actor User) (Scope, error) {
	if !actor.IsTeacher() {
		return Scope{}, core.ErrPermissionDenied
	}
	p, err := svc.repo.GetTeacherProfile(ctx, actor.ID)
	if err != nil {
		if errors.Cause(err) == ErrProfileNotFound {
			return Scope{}, core.NewValidationError(ErrNoAssignedScope)
		}
		return Scope{}, errors.Wrap(err, "getting teacher profile")
	}
	if p.Scope().IsZero() {
		return Scope{}, core.NewValidationError(ErrNoAssignedScope)
	}
	return p.Scope(), nil
}

func (svc *service) StudentProfile(ctx context.Context, userID string) (StudentProfile, error) {
	return svc.repo.GetStudentProfile(ctx, userID)
}

func (svc *service) Students(ctx context.Context, filter StudentFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) SetFeePaid(ctx context.Context, paid bool, studentIDs ...string) error {
	return errors.Wrap(svc.repo.SetFeePaid(ctx, paid, studentIDs...), "updating fee paid flag")
}
