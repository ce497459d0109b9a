package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserSetAndCheckPassword(t *testing.T) {
	user := &User{Username: "alice"}

	require.NoError(t, user.SetPassword("correct horse battery staple"))
	require.NotEmpty(t, user.PasswordHash)
	assert.NotContains(t, user.PasswordHash, "correct horse")

	assert.True(t, user.CheckPassword("correct horse battery staple"))
	assert.False(t, user.CheckPassword("wrong password"))
	assert.False(t, user.CheckPassword(""))
}

func TestUserPasswordHashCost(t *testing.T) {
	user := &User{Username: "alice"}
	require.NoError(t, user.SetPassword("pw"))

	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcryptCost, cost)
}

func TestUserCheckPasswordEmptyHash(t *testing.T) {
	user := &User{Username: "ghost"}
	assert.False(t, user.CheckPassword("anything"))
}
