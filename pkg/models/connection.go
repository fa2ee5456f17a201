// Package models defines the domain types shared across the gateway.
package models

import (
	"strings"
	"time"

	"github.com/sqlgate/sqlgate/pkg/errors"
)

// ConnectionStatus represents the lifecycle state of a registry entry.
type ConnectionStatus string

const (
	StatusCreated      ConnectionStatus = "created"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
	StatusTimeout      ConnectionStatus = "timeout"
)

// IsHealthy returns true if the connection is usable for queries.
func (s ConnectionStatus) IsHealthy() bool {
	return s == StatusConnected
}

// Server types recognized by the dialect layer.
const (
	ServerTypePostgres = "postgres"
	ServerTypeMySQL    = "mysql"
	ServerTypeSQLite   = "sqlite"
)

// Bounds enforced when constructing ConnectionInfo.
const (
	MinPort     = 1
	MaxPort     = 65535
	MinPoolSize = 1
	MaxPoolSize = 100
)

// ConnectionInfo is the immutable description of a registered database
// connection. Construct it with NewConnectionInfo; invalid values fail
// before any connection attempt is made.
type ConnectionInfo struct {
	ConnectionID string
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	PoolSize     int
	ReadOnly     bool
	ServerType   string
	SSLMode      string
	CreatedAt    time.Time
}

// NewConnectionInfo validates and builds a ConnectionInfo.
func NewConnectionInfo(id, host string, port int, database, username, password string, poolSize int, readOnly bool, serverType, sslMode string) (*ConnectionInfo, error) {
	switch {
	case strings.TrimSpace(id) == "":
		return nil, errors.New(errors.CodeInvalidRequest, "connection_id cannot be blank")
	case strings.TrimSpace(host) == "":
		return nil, errors.New(errors.CodeInvalidRequest, "host cannot be blank")
	case port < MinPort || port > MaxPort:
		return nil, errors.Newf(errors.CodeInvalidRequest, "port %d out of range [%d, %d]", port, MinPort, MaxPort)
	case strings.TrimSpace(database) == "":
		return nil, errors.New(errors.CodeInvalidRequest, "database cannot be blank")
	case strings.TrimSpace(username) == "":
		return nil, errors.New(errors.CodeInvalidRequest, "username cannot be blank")
	case strings.TrimSpace(password) == "":
		return nil, errors.New(errors.CodeInvalidRequest, "password cannot be blank")
	case poolSize < MinPoolSize || poolSize > MaxPoolSize:
		return nil, errors.Newf(errors.CodeInvalidRequest, "pool_size %d out of range [%d, %d]", poolSize, MinPoolSize, MaxPoolSize)
	}

	if serverType == "" {
		serverType = ServerTypePostgres
	}
	if sslMode == "" {
		sslMode = "disable"
	}

	return &ConnectionInfo{
		ConnectionID: id,
		Host:         host,
		Port:         port,
		Database:     database,
		Username:     username,
		Password:     password,
		PoolSize:     poolSize,
		ReadOnly:     readOnly,
		ServerType:   strings.ToLower(serverType),
		SSLMode:      sslMode,
		CreatedAt:    time.Now(),
	}, nil
}

// ConnectionSummary is the credential-free view of a registry entry
// returned by list and add operations.
type ConnectionSummary struct {
	ConnectionID   string           `json:"connection_id"`
	Host           string           `json:"host"`
	Port           int              `json:"port"`
	Database       string           `json:"database"`
	Username       string           `json:"username"`
	PoolSize       int              `json:"pool_size"`
	ReadOnly       bool             `json:"read_only"`
	ServerType     string           `json:"server_type"`
	Status         ConnectionStatus `json:"status"`
	LastError      string           `json:"last_error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
}
