package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextDocIDUnique(t *testing.T) {
	a := NextDocID()
	b := NextDocID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestGetSecretSalt(t *testing.T) {
	t.Setenv("PRODSYNC_SECRET", "")
	assert.Equal(t, "prodsync-dev-secret", GetSecretSalt())

	t.Setenv("PRODSYNC_SECRET", "instance-secret")
	assert.Equal(t, "instance-secret", GetSecretSalt())
}
