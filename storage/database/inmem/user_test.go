package inmemdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
	inmemdb "github.com/vidhyasetu/backend/storage/database/inmem"
	testutil "github.com/vidhyasetu/backend/tests"
)

func Test_userRepository_QueryUsers_ordering(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.New())
	testutil.CreateUser(t, repo, user.RoleTeacher, "meera", "meera@school.test", "Ch@lkDust42", true)
	testutil.CreateUser(t, repo, user.RoleAdmin, "arjun", "arjun@school.test", "Pr1ncipal!", true)

	// spare capacity the repository must not write into
	backing := make([]core.DBOrdering, 1, 4)
	backing[0] = core.DBOrdering{Field: "username", Ascending: false}
	ordering := backing[:1]

	users, err := repo.QueryUsers(context.Background(), nil, ordering)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "meera", users[0].Username)
	assert.Equal(t, "arjun", users[1].Username)

	assert.Equal(t, []core.DBOrdering{{}, {}, {}}, backing[1:4])
	assert.Len(t, ordering, 1)
}
