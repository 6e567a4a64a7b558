package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(RegisterSnowflake),
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the process-wide id generator. SNOWFLAKE_NODE
// must differ between replicas to keep generated ids unique.
func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
