package node

import (
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"hlckv/internal/config"
	"hlckv/internal/hlc"
	"hlckv/internal/metrics"
	"hlckv/internal/repair"
	"hlckv/internal/storage"
	"hlckv/internal/transport"
)

// Node represents a single node in the distributed system.
type Node struct {
	cfg        config.Config
	logger     *zap.Logger
	grpcServer *grpc.Server
	store      storage.Store
	clock      *hlc.Source[uint64, uint32]
	clientMgr  *ClientManager
	repairer   *repair.ReadRepairer
	server     *Server
	internal   *InternalServer
}

// Option customizes a Node.
type Option func(*options)

type options struct {
	dialOpts []grpc.DialOption
	now      func() uint64
	store    storage.Store
}

// WithDialOptions adds gRPC dial options used for peer connections.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// WithPhysicalClock replaces the wall clock (milliseconds since the epoch).
func WithPhysicalClock(now func() uint64) Option {
	return func(o *options) { o.now = now }
}

// WithStore uses store instead of opening one from the configuration.
func WithStore(store storage.Store) Option {
	return func(o *options) { o.store = store }
}

// NewNode creates a node, opening its store and seeding its clock from the
// highest version already stored. reg may be nil.
func NewNode(cfg config.Config, logger *zap.Logger, reg prometheus.Registerer, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("node", cfg.NodeID))

	o := options{now: hlc.WallClockMillis}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = openStore(cfg.DataPath)
		if err != nil {
			return nil, err
		}
	}

	clock := hlc.NewSource[uint64, uint32](o.now).
		WithMaxOffset(uint64(cfg.MaxOffset.Milliseconds())).
		WithMetrics(metrics.NewClock(reg))

	highest, err := store.MaxVersion()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("read max version: %w", err)
	}
	clock.Seed(highest)

	storeMetrics := metrics.NewStore(reg)
	clientMgr := NewClientManager(o.dialOpts...)

	n := &Node{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		clock:     clock,
		clientMgr: clientMgr,
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	coord := &coordinator{
		nodeID:    cfg.NodeID,
		replicas:  cfg.Replicas(),
		store:     store,
		clock:     clock,
		clientMgr: clientMgr,
		timeout:   timeout,
		logger:    logger,
		metrics:   storeMetrics,
	}
	n.repairer = repair.NewReadRepairer(coord.repairApply, timeout, logger, storeMetrics)
	coord.repairer = n.repairer

	n.server = newServer(coord, cfg.R, cfg.W)
	n.internal = newInternalServer(coord)

	n.grpcServer = grpc.NewServer(transport.ServerOption())
	transport.RegisterKVStoreServer(n.grpcServer, n.server)
	transport.RegisterKVInternalServer(n.grpcServer, n.internal)

	logger.Info("node initialized",
		zap.Int("replicas", len(coord.replicas)),
		zap.Stringer("clock", highest),
		zap.Bool("persistent", cfg.DataPath != ""))
	return n, nil
}

func openStore(path string) (storage.Store, error) {
	if path == "" {
		return storage.NewInMemoryStore(), nil
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return store, nil
}

// Clock returns the node's hybrid logical clock.
func (n *Node) Clock() *hlc.Source[uint64, uint32] {
	return n.clock
}

// Start starts the gRPC server and begins listening.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.ListenAddr, err)
	}
	return n.Serve(lis)
}

// Serve serves both services on lis until Stop is called.
func (n *Node) Serve(lis net.Listener) error {
	n.logger.Info("starting node", zap.String("addr", lis.Addr().String()))

	if err := n.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the node, waits for pending read repairs and
// releases its connections and store.
func (n *Node) Stop() {
	n.logger.Info("stopping node")
	n.grpcServer.GracefulStop()
	n.repairer.Wait()
	if err := n.clientMgr.Close(); err != nil {
		n.logger.Warn("closing peer connections", zap.Error(err))
	}
	if err := n.store.Close(); err != nil {
		n.logger.Warn("closing store", zap.Error(err))
	}
}
