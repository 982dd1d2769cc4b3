package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/solmem-mcp/internal/embedder"
	"github.com/dshills/solmem-mcp/internal/ingest"
	"github.com/dshills/solmem-mcp/internal/searcher"
	"github.com/dshills/solmem-mcp/internal/storage"
	"github.com/dshills/solmem-mcp/internal/vecstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "solmem-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// EnvDataPath overrides the data directory
	EnvDataPath = "SOLMEM_DATA_PATH"
	// DefaultDataDir is the default data directory under $HOME
	DefaultDataDir = ".solmem"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	store       storage.Store
	vectors     *vecstore.VecStore
	coordinator *ingest.Coordinator
	searcher    *searcher.Engine
}

// NewServer creates a new MCP server instance rooted at dataPath. An
// empty dataPath falls back to $SOLMEM_DATA_PATH, then ~/.solmem.
func NewServer(dataPath string) (*Server, error) {
	dataPath, err := resolveDataPath(dataPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(dataPath, "solutions.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// The vector store lives in its own file so losing it never blocks
	// relational writes or keyword search.
	vectors, err := vecstore.New(filepath.Join(dataPath, "vectors.db"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:         mcpServer,
		store:       store,
		vectors:     vectors,
		coordinator: ingest.New(store, vectors, emb),
		searcher:    searcher.New(store, vectors, emb),
	}
	s.registerTools()

	return s, nil
}

// resolveDataPath picks the data directory: explicit argument, then the
// environment override, then ~/.solmem.
func resolveDataPath(dataPath string) (string, error) {
	if dataPath == "" {
		dataPath = os.Getenv(EnvDataPath)
	}
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataPath = filepath.Join(home, DefaultDataDir)
	}
	return dataPath, nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(saveSolutionTool(), s.handleSaveSolution)
	s.mcp.AddTool(searchSolutionsTool(), s.handleSearchSolutions)
	s.mcp.AddTool(getSolutionTool(), s.handleGetSolution)
	s.mcp.AddTool(listTagsTool(), s.handleListTags)
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	if stats, err := s.store.Stats(ctx); err == nil {
		log.Printf("solution memory ready: %d solutions, %d tags, %d degraded",
			stats.Solutions, stats.Tags, stats.Degraded)
	}
	defer func() {
		_ = s.store.Close()
		_ = s.vectors.Close()
	}()
	return server.ServeStdio(s.mcp)
}
