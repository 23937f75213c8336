// Command rdnsctl is the operator CLI for talking to the rdnsd stats socket.
package main

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rdnsctl",
		Short: "Operator CLI for the rdnsd stats socket",
	}
	root.AddCommand(newMetricsCmd())
	return root
}

func newMetricsCmd() *cobra.Command {
	var socketPath string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Fetch Prometheus metrics from a running rdnsd",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd.OutOrStdout(), socketPath, "metrics")
		},
	}
	cmd.Flags().StringVarP(&socketPath, "socket", "s", "rdns.sock", "path to the rdnsd stats socket")
	return cmd
}

func sendCommand(out io.Writer, socketPath, command string) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return fmt.Errorf("sending %q: %w", command, err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		if err := unixConn.CloseWrite(); err != nil {
			return fmt.Errorf("half-closing connection: %w", err)
		}
	}

	response, err := io.ReadAll(conn)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	_, err = fmt.Fprintln(out, string(response))
	return err
}
