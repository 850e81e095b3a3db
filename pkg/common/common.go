package common

import (
	"os"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	nodeOnce sync.Once
	idNode   *snowflake.Node
)

func node() *snowflake.Node {
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		idNode = n
	})
	return idNode
}

// NextID returns a new snowflake id as int64.
func NextID() int64 {
	return node().Generate().Int64()
}

// NextDocID returns a new snowflake id in base36 string form, used as the
// document id for catalog records.
func NextDocID() string {
	return node().Generate().Base36()
}

// GetSecretSalt reads the instance secret from the environment, falling back
// to a fixed development value. It signs session tokens when no jwt_secret
// is configured.
func GetSecretSalt() string {
	if s := strings.TrimSpace(os.Getenv("PRODSYNC_SECRET")); s != "" {
		return s
	}
	return "prodsync-dev-secret"
}
