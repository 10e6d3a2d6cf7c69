package common

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// UUIDint64 returns a snowflake int64 id for database rows.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

const alnum = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomAlnum returns a random lowercase alphanumeric string of length n.
func RandomAlnum(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(alnum)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is unrecoverable for id generation
			panic(err)
		}
		sb.WriteByte(alnum[idx.Int64()])
	}
	return sb.String()
}

// SessionID returns a new alphanumeric session identifier with the given
// product prefix, e.g. "pg7c9e6679a1b4".
func SessionID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + raw[:12]
}

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
