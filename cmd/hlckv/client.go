package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"hlckv/internal/hlc"
	"hlckv/internal/transport"
)

type clientFlags struct {
	addr     string
	clientID string
	quorum   uint32
	context  string
	timeout  time.Duration
}

var clientOpts clientFlags

func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&clientOpts.addr, "addr", "127.0.0.1:50051", "node to send the request to")
	f.StringVar(&clientOpts.clientID, "client-id", "hlckv-cli", "client identifier sent with the request")
	f.Uint32Var(&clientOpts.quorum, "quorum", 0, "read or write quorum (0 = node default)")
	f.StringVar(&clientOpts.context, "context", "", "highest version already seen, as printed by a previous command")
	f.DurationVar(&clientOpts.timeout, "timeout", 5*time.Second, "request timeout")
}

var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Store a value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient(cmd, func(ctx context.Context, c *transport.KVStoreClient, req *transport.Request) (*transport.Response, error) {
			req.Value = []byte(args[1])
			return c.Put(ctx, req)
		}, args[0])
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient(cmd, func(ctx context.Context, c *transport.KVStoreClient, req *transport.Request) (*transport.Response, error) {
			return c.Get(ctx, req)
		}, args[0])
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient(cmd, func(ctx context.Context, c *transport.KVStoreClient, req *transport.Request) (*transport.Response, error) {
			return c.Delete(ctx, req)
		}, args[0])
	},
}

func init() {
	for _, cmd := range []*cobra.Command{putCmd, getCmd, deleteCmd} {
		addClientFlags(cmd)
	}
}

type call func(ctx context.Context, c *transport.KVStoreClient, req *transport.Request) (*transport.Response, error)

func runClient(cmd *cobra.Command, do call, key string) error {
	// The client keeps its own clock so the node observes this process's
	// send time, and any version passed in --context happens before the
	// request.
	clock := hlc.NewTimestampSource()

	req := &transport.Request{
		Key:       key,
		ClientID:  clientOpts.clientID,
		RequestID: uuid.NewString(),
		Quorum:    clientOpts.quorum,
	}
	if clientOpts.context != "" {
		seen, err := hlc.ParseTimestamp(clientOpts.context)
		if err != nil {
			return fmt.Errorf("--context: %w", err)
		}
		if _, err := clock.Observe(seen); err != nil {
			return err
		}
		req.Context = seen
	}
	sent, err := clock.Now()
	if err != nil {
		return err
	}
	req.Sent = sent

	conn, err := grpc.NewClient("passthrough:///"+clientOpts.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect %s: %w", clientOpts.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), clientOpts.timeout)
	defer cancel()

	logger.Debug("sending request",
		zap.String("method", cmd.Name()),
		zap.String("key", key),
		zap.String("request_id", req.RequestID),
		zap.Stringer("sent", req.Sent))

	resp, err := do(ctx, transport.NewKVStoreClient(conn), req)
	if err != nil {
		return err
	}
	if _, err := clock.Observe(resp.Sent); err != nil {
		logger.Warn("node clock rejected", zap.Error(err))
	}

	printResponse(os.Stdout, cmd.Name(), resp)
	return nil
}

func printResponse(w io.Writer, method string, resp *transport.Response) {
	if method == "get" && !resp.Found {
		fmt.Fprintln(w, "(not found)")
	}
	if r := resp.Record; r != nil {
		if method == "get" && !r.Deleted {
			fmt.Fprintf(w, "%s\n", r.Value)
		}
		fmt.Fprintf(w, "version: %s (origin %s)\n", hlc.FormatTimestamp(r.Version), r.Origin)
	}
	for _, s := range resp.Siblings {
		fmt.Fprintf(w, "concurrent: %q at %s (origin %s)\n", s.Value, hlc.FormatTimestamp(s.Version), s.Origin)
	}
}
