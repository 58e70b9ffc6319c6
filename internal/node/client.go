package node

import (
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"hlckv/internal/transport"
)

// ClientManager manages gRPC connections to peer nodes. Connections are
// created lazily and shared by both services.
type ClientManager struct {
	mu       sync.RWMutex
	conns    map[string]*grpc.ClientConn
	dialOpts []grpc.DialOption
}

// NewClientManager creates a new client manager. opts are appended to the
// default insecure transport credentials.
func NewClientManager(opts ...grpc.DialOption) *ClientManager {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	return &ClientManager{
		conns:    make(map[string]*grpc.ClientConn),
		dialOpts: dialOpts,
	}
}

func (cm *ClientManager) conn(addr string) (*grpc.ClientConn, error) {
	cm.mu.RLock()
	conn, exists := cm.conns[addr]
	cm.mu.RUnlock()

	if exists {
		return conn, nil
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Double-check after acquiring write lock
	if conn, exists := cm.conns[addr]; exists {
		return conn, nil
	}

	conn, err := grpc.NewClient("passthrough:///"+addr, cm.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	cm.conns[addr] = conn
	return conn, nil
}

// GetClient returns a client for the KVStore service at addr.
func (cm *ClientManager) GetClient(addr string) (*transport.KVStoreClient, error) {
	conn, err := cm.conn(addr)
	if err != nil {
		return nil, err
	}
	return transport.NewKVStoreClient(conn), nil
}

// GetInternalClient returns a client for the KVInternal service at addr.
func (cm *ClientManager) GetInternalClient(addr string) (*transport.KVInternalClient, error) {
	conn, err := cm.conn(addr)
	if err != nil {
		return nil, err
	}
	return transport.NewKVInternalClient(conn), nil
}

// Close closes all client connections.
func (cm *ClientManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var errs []error
	for addr, conn := range cm.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	cm.conns = make(map[string]*grpc.ClientConn)
	return errors.Join(errs...)
}
