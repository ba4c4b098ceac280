package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/pkg/jwt"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	token, err := jwt.Generate("s3cret", "u-1", "bodega", "distribuidora-api", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "bodega", claims.Actor())
	assert.Equal(t, "distribuidora-api", claims.Issuer)
}

func TestParse_Rejects(t *testing.T) {
	token, err := jwt.Generate("s3cret", "u-1", "", "x", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", token)
	assert.Error(t, err)

	expired, err := jwt.Generate("s3cret", "u-1", "", "x", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("s3cret", expired)
	assert.Error(t, err)

	_, err = jwt.Generate("", "u-1", "", "x", 5)
	assert.Error(t, err)
}

func TestActor_FallsBackToUserID(t *testing.T) {
	c := &jwt.Claims{UserID: "u-9"}
	assert.Equal(t, "u-9", c.Actor())
}
