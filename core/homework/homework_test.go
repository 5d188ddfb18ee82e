package homework_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/user"
	testutil "github.com/vidhyasetu/backend/tests"
)

func TestPost(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, env.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, env.UserRepo, "teacher", "6", "A")
	unassigned := testutil.CreateTeacher(t, env.UserRepo, "unassigned", "", "")

	hw, err := env.Homework.Post(ctx, teacher, homework.NewHomework{Title: "Fractions", Description: "Ex 3.2", DueDate: "2025-07-10"})
	require.NoError(t, err)
	assert.Equal(t, "6", hw.Class)
	assert.Equal(t, "A", hw.Section)
	assert.Equal(t, testutil.Date("2025-07-10"), hw.DueDate)
	require.NotNil(t, hw.TeacherID)
	assert.Equal(t, teacher.ID, *hw.TeacherID)

	// explicit scope needs no assignment
	hw, err = env.Homework.Post(ctx, unassigned, homework.NewHomework{Title: "Essay", Class: "7", Section: "B", DueDate: "2025-07-12"})
	require.NoError(t, err)
	assert.Equal(t, "7", hw.Class)

	_, err = env.Homework.Post(ctx, unassigned, homework.NewHomework{Title: "Essay", DueDate: "2025-07-12"})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, user.ErrNoAssignedScope, vErr.Err)

	_, err = env.Homework.Post(ctx, teacher, homework.NewHomework{Title: "Essay", DueDate: "12/07/2025"})
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(err, &vErrs))
	assert.Equal(t, "due_date", vErrs[0].Field())

	_, err = env.Homework.Post(ctx, admin, homework.NewHomework{Title: "Essay", DueDate: "2025-07-12"})
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestList(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, env.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, env.UserRepo, "teacher", "6", "A")
	other := testutil.CreateTeacher(t, env.UserRepo, "other", "6", "B")
	st := testutil.RegisterStudent(t, env, admin, "Asha", "Rao", "2012-05-03", "6", "A")

	post := func(actor user.User, title, due string) {
		t.Helper()
		_, err := env.Homework.Post(ctx, actor, homework.NewHomework{Title: title, DueDate: due})
		require.NoError(t, err)
	}
	post(teacher, "Later", "2025-07-20")
	post(teacher, "Sooner", "2025-07-05")
	post(other, "Other section", "2025-07-01")

	student, err := env.Users.GetByID(ctx, st.User.ID)
	require.NoError(t, err)
	list, err := env.Homework.ForStudent(ctx, student)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sooner", list[0].Title, "closest due date first")

	_, err = env.Homework.ForStudent(ctx, teacher)
	assert.Equal(t, core.ErrPermissionDenied, err)

	list, err = env.Homework.ByTeacher(ctx, other, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Other section", list[0].Title)

	list, err = env.Homework.ByTeacher(ctx, teacher, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
