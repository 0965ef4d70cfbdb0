package repository

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	assert.False(t, ValidName("café"))
	assert.True(t, ValidName("cafe"))

	for _, r := range "áéíóúÁÉÍÓÚñÑ" {
		assert.False(t, ValidName("x"+string(r)+"y"), "%q must be rejected", r)
	}

	// Only the listed characters are rejected.
	for _, name := range []string{"", "ü", "à", "ç", "日本", "my repo", "a-b_c.d"} {
		assert.True(t, ValidName(name), "%q must be accepted", name)
	}
}

func TestSanitizeUserID(t *testing.T) {
	assert.Equal(t, "abcXYZ09_-", SanitizeUserID("abcXYZ09_-"))
	assert.Equal(t, "user1secret", SanitizeUserID("user1/../secret"))
	assert.Equal(t, "", SanitizeUserID("$$$"))
}

func TestValidateFiles(t *testing.T) {
	assert.NoError(t, validateFiles(files("a.txt", "docs/b.txt")))

	var validation *ValidationError
	for _, name := range []string{"/abs.txt", "docs/", "a//b", "./a", "a/../b"} {
		err := validateFiles(files(name))
		require.Error(t, err, name)
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, "Invalid file path: "+name, validation.Message)
	}
}

func TestResultJSON(t *testing.T) {
	t.Run("DataOmittedWhenZero", func(t *testing.T) {
		out, err := json.Marshal(Ok(MsgDeleted, struct{}{}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"message":"Repository deleted successfully."}`, string(out))

		out, err = json.Marshal(Fail[*RepositoryInfo](&NotFoundError{UserID: "u", Name: "r"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"message":"Repository with this name does not exist."}`, string(out))
	})

	t.Run("EmptyTreeSerializesEmptyArrays", func(t *testing.T) {
		out, err := json.Marshal(Ok(MsgNoRepositories, newFolder("")))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"message":"No repositories found.","data":{"files":[],"folders":[]}}`, string(out))
	})

	t.Run("RepositoryInfo", func(t *testing.T) {
		out, err := json.Marshal(Ok(MsgCreated, &RepositoryInfo{Name: "docs", User: UserRef{ID: "u1"}}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"message":"Repository registered successfully.","data":{"name":"docs","user":{"id":"u1"}}}`, string(out))
	})
}

func TestFailKinds(t *testing.T) {
	tests := []struct {
		err     error
		kind    ErrorKind
		message string
	}{
		{&ValidationError{Message: MsgNoFiles}, KindValidation, MsgNoFiles},
		{&ConflictError{UserID: "u", Name: "r"}, KindConflict, MsgAlreadyExists},
		{&NotFoundError{UserID: "u", Name: "r"}, KindNotFound, MsgDoesNotExist},
		{&StoreError{Op: "put", Key: "k", Message: MsgUploadFailed, Err: errInjected}, KindStore, MsgUploadFailed},
		{errors.New("boom"), KindStore, "Unexpected storage error."},
	}

	for _, tt := range tests {
		result := Fail[struct{}](tt.err)
		assert.False(t, result.Success)
		assert.Equal(t, tt.kind, result.Kind)
		assert.Equal(t, tt.message, result.Message)
	}

	storeErr := &StoreError{Op: "put", Key: "k", Err: errInjected}
	assert.ErrorIs(t, storeErr, errInjected)
}
