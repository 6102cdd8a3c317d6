package cluster

import (
	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cmdutil"
)

// NewCmdCluster creates the cluster command group.
func NewCmdCluster(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Bring test clusters up and down",
		Long: `A cluster file lists the nodes of a test cluster:

  name: kv
  subnet: 10.55.0.0/24        # optional
  nodes:
    - name: redis
      image: redis:7
      ports: ["6379"]         # a host port is reserved from cluster.port_range_*
      ready:
        log: Ready to accept connections
    - name: client
      image: alpine:3.20
      cmd: [sleep, infinity]
      ready:
        exec: nc -z redis 6379

Containers are named <cluster>-<node> and reach each other by node name.`,
	}

	cmd.AddCommand(NewCmdUp(f, nil))
	cmd.AddCommand(NewCmdDown(f, nil))

	return cmd
}
