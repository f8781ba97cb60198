package delegation

import (
	"fmt"
)

// RepositoryConfig contains configuration for creating a delegation repository
type RepositoryConfig struct {
	// DB is required for PostgreSQL repositories
	DB TxBeginner
	// DataDir is required for file-based repositories
	DataDir string
}

// NewDelegationRepository creates a new delegation repository based on the persistence type
func NewDelegationRepository(persistenceType string, config RepositoryConfig) (DelegationRepository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("db required for postgres repository")
		}
		return NewPostgresDelegationRepository(config.DB), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileDelegationRepository(config.DataDir)
	case "memory", "inmem", "":
		return NewInMemoryDelegationRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
