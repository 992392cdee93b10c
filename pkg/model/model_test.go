package model_test

import (
	"testing"

	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileIdRoundTripsThroughString(t *testing.T) {
	id := model.NewFileId()
	assert.False(t, id.IsZero())
	assert.NotEmpty(t, id.String())

	other := model.NewFileId()
	assert.NotEqual(t, id.String(), other.String())
}

func TestFileIdZeroValue(t *testing.T) {
	var id model.FileId
	assert.True(t, id.IsZero())
}

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name    string
		valid   bool
		wantErr model.Kind
	}{
		{"alice", true, 0},
		{"bob123", true, 0},
		{"", false, model.KindUsernameInvalid},
		{"Alice", false, model.KindUsernameInvalid},
		{"has space", false, model.KindUsernameInvalid},
		{string(make([]byte, 65)), false, model.KindUsernameInvalid},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := model.ValidateUsername(c.name)
			if c.valid {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, c.wantErr, err.Kind)
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, model.Username("alice"), model.NormalizeUsername("Alice"))
}

func TestCoreErrorCarriesKind(t *testing.T) {
	err := model.E(model.KindFileNonexistent, "file %s not found", "abc")
	assert.Equal(t, "FileNonexistent", err.Kind.String())
	assert.Contains(t, err.Error(), "abc")
}

func TestUnexpectedWrapsGenericError(t *testing.T) {
	err := model.Unexpected(assertionError{"boom"})
	assert.Equal(t, model.KindUnexpected, err.Kind)
	assert.Equal(t, "boom", err.Error())
}

type assertionError struct{ msg string }

func (e assertionError) Error() string { return e.msg }

func TestFileIsRoot(t *testing.T) {
	id := model.NewFileId()
	f := &model.File{Id: id, Parent: id}
	assert.True(t, f.IsRoot())

	f.Parent = model.NewFileId()
	assert.False(t, f.IsRoot())
}

func TestFileCloneIsIndependent(t *testing.T) {
	hmac := model.DocHmac{1, 2, 3}
	original := &model.File{
		Id:           model.NewFileId(),
		DocumentHmac: &hmac,
		Name: model.EncryptedName{
			Value: model.EncryptedValue{Ciphertext: []byte{1, 2, 3}},
		},
		UserAccessKeys: map[model.Username]model.UserAccessKey{
			"alice": {AccessKey: model.EncryptedValue{Ciphertext: []byte{4, 5, 6}}},
		},
	}

	clone := original.Clone()
	clone.DocumentHmac[0] = 99
	clone.Name.Value.Ciphertext[0] = 99
	key := clone.UserAccessKeys["alice"]
	key.AccessKey.Ciphertext[0] = 99
	clone.UserAccessKeys["alice"] = key

	assert.Equal(t, byte(1), original.DocumentHmac[0])
	assert.Equal(t, byte(1), original.Name.Value.Ciphertext[0])
	assert.Equal(t, byte(4), original.UserAccessKeys["alice"].AccessKey.Ciphertext[0])
}

func TestSignedFileClone(t *testing.T) {
	original := &model.SignedFile{
		File:      model.File{Id: model.NewFileId()},
		Timestamp: 1700000000000,
		PublicKey: "pk",
		Signature: []byte{1, 2, 3},
	}

	clone := original.Clone()
	clone.Signature[0] = 99
	clone.File.Id = model.NewFileId()

	assert.Equal(t, byte(1), original.Signature[0])
	assert.NotEqual(t, original.File.Id, clone.File.Id)
}
