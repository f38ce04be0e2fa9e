package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
)

func Test_Hashers(t *testing.T) {
	t.Parallel()

	argon, err := NewArgon2Hasher()
	require.NoError(t, err)

	hashers := map[string]PasswordHasher{
		HasherBcrypt:   BcryptHasher{Cost: bcrypt.MinCost},
		HasherArgon2id: argon,
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			t.Run("compare password ok", func(t *testing.T) {
				hash, err := h.Hash("password")
				require.NoError(t, err)
				require.NotContains(t, hash, "password", "hash must not contain the password")

				err = h.Compare(hash, "password")

				require.NoError(t, err)
			})

			t.Run("fail compare if wrong password", func(t *testing.T) {
				hash, err := h.Hash("password")
				require.NoError(t, err)

				err = h.Compare(hash, "wrong")

				require.ErrorIs(t, err, apperrors.ErrCredentialMismatch)
			})

			t.Run("same password gives different hashes", func(t *testing.T) {
				first, err := h.Hash("password")
				require.NoError(t, err)
				second, err := h.Hash("password")
				require.NoError(t, err)

				require.NotEqual(t, first, second, "hash must be salted")
			})
		})
	}

	t.Run("bcrypt format", func(t *testing.T) {
		got, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash("password")
		require.NoError(t, err)

		require.Len(t, got, 60, "bcrypt length is 60 letters as far as i know")
		require.Equal(t, "$2a$", got[:4], "bcrypt has should have prefix '$2a$'")
	})

	t.Run("bcrypt long passwords differ after 72 bytes", func(t *testing.T) {
		h := BcryptHasher{Cost: bcrypt.MinCost}
		prefix := strings.Repeat("a", 80)
		hash, err := h.Hash(prefix + "1")
		require.NoError(t, err)

		err = h.Compare(hash, prefix+"2")

		require.ErrorIs(t, err, apperrors.ErrCredentialMismatch)
	})

	t.Run("argon2id format", func(t *testing.T) {
		got, err := argon.Hash("password")
		require.NoError(t, err)

		require.Contains(t, got, "argon2id", "hash must name the algorithm")
	})

	t.Run("new hasher by name", func(t *testing.T) {
		h, err := NewHasher("")
		require.NoError(t, err)
		require.IsType(t, BcryptHasher{}, h, "bcrypt is default")

		h, err = NewHasher(HasherArgon2id)
		require.NoError(t, err)
		require.IsType(t, &Argon2Hasher{}, h)

		_, err = NewHasher("md5")
		require.Error(t, err)
	})
}
