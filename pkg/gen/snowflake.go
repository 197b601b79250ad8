package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake",
	fx.Provide(NewNode),
)

// NewNode builds the snowflake node used for entity IDs. Single-node
// deployments use node 1; multi-node setups should derive this from the
// environment.
func NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
