package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/anchorline/did-audit/pkg/anchor"
	"github.com/anchorline/did-audit/pkg/auditor"
	"github.com/anchorline/did-audit/pkg/config"
	"github.com/anchorline/did-audit/pkg/logger"
	"github.com/anchorline/did-audit/pkg/merkle"
	"github.com/anchorline/did-audit/pkg/store"
	storeBadger "github.com/anchorline/did-audit/pkg/store/badger"
	storeMemory "github.com/anchorline/did-audit/pkg/store/memory"
	storeRedis "github.com/anchorline/did-audit/pkg/store/redis"
	"github.com/anchorline/did-audit/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "did-audit",
		Usage: "Merkle audit tooling for anchored DID operation batches",
		Description: `Builds merkle trees over DID operation records, derives inclusion
proofs, and verifies externally anchored batch proofs.

A failed verification can be recorded as a durable integrity alert
against the subject via the configured store backend.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Value:   string(config.StoreBackendMemory),
				Usage:   "Store backend: memory, badger or redis",
				EnvVars: []string{config.EnvAuditStoreBackend},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Data directory for the badger backend",
				EnvVars: []string{config.EnvAuditDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port) for the redis backend",
				EnvVars: []string{config.EnvAuditRedisAddress},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Value:   0,
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvAuditRedisDB},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAuditVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "root",
				Usage: "Build the merkle tree over an events JSON file and print the root",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "events", Usage: "Path to a JSON array of event records", Required: true},
				},
				Action: runRoot,
			},
			{
				Name:  "prove",
				Usage: "Derive the inclusion proof for one event of an events JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "events", Usage: "Path to a JSON array of event records", Required: true},
					&cli.IntFlag{Name: "index", Usage: "Index of the target event within the file", Required: true},
				},
				Action: runProve,
			},
			{
				Name:  "verify",
				Usage: "Verify an anchoring proof JSON file against its stated root",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proof", Usage: "Path to an anchoring proof JSON file", Required: true},
					&cli.StringFlag{Name: "subject", Usage: "DID subject the proof belongs to"},
					&cli.BoolFlag{Name: "record-alert", Usage: "Record an integrity alert on failure via the configured store"},
				},
				Action: runVerify,
			},
			{
				Name:  "trace",
				Usage: "Print the step-by-step verification trace of an anchoring proof",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proof", Usage: "Path to an anchoring proof JSON file", Required: true},
				},
				Action: runTrace,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runRoot(c *cli.Context) error {
	records, err := loadEvents(c.String("events"))
	if err != nil {
		return err
	}

	tree := merkle.BuildTree(records)
	fmt.Printf("root:   %s\n", tree.Root)
	fmt.Printf("leaves: %d\n", tree.LeafCount)
	fmt.Printf("depth:  %d\n", tree.Depth)
	return nil
}

func runProve(c *cli.Context) error {
	records, err := loadEvents(c.String("events"))
	if err != nil {
		return err
	}

	index := c.Int("index")
	if index < 0 || index >= len(records) {
		return fmt.Errorf("index %d out of bounds (file has %d events)", index, len(records))
	}

	proof := merkle.GetProof(records, records[index])
	return printJSON(proof)
}

func runVerify(c *cli.Context) error {
	raw, err := loadProof(c.String("proof"))
	if err != nil {
		return err
	}

	if !c.Bool("record-alert") {
		path := anchor.VerifyProof(raw.Normalize())
		fmt.Printf("computed root: %s\n", path.ComputedRoot)
		fmt.Printf("anchored root: %s\n", path.MerkleRoot)
		fmt.Printf("valid:         %v\n", path.IsValid)
		if !path.IsValid {
			return cli.Exit("verification failed", 1)
		}
		return nil
	}

	cfg, zl, err := buildConfig(c)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	s, err := openStore(cfg, zl)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	trace, err := auditor.NewAuditor(s, zl).Audit(c.String("subject"), raw)
	if err != nil {
		return err
	}

	fmt.Printf("computed root: %s\n", trace.ComputedRoot)
	fmt.Printf("anchored root: %s\n", trace.ExpectedRoot)
	fmt.Printf("valid:         %v\n", trace.IsValid)
	if !trace.IsValid {
		return cli.Exit("verification failed, integrity alert recorded", 1)
	}
	return nil
}

func runTrace(c *cli.Context) error {
	raw, err := loadProof(c.String("proof"))
	if err != nil {
		return err
	}

	trace := anchor.TraceVerification(raw.Normalize())
	for _, step := range trace.Steps {
		fmt.Printf("%s\n  left:   %s\n  right:  %s\n  output: %s\n",
			step.Description, step.Left, step.Right, step.Output)
	}
	fmt.Printf("computed root: %s\n", trace.ComputedRoot)
	fmt.Printf("anchored root: %s\n", trace.ExpectedRoot)
	fmt.Printf("valid:         %v\n", trace.IsValid)
	return nil
}

func buildConfig(c *cli.Context) (*config.AuditConfig, *zap.Logger, error) {
	cfg := &config.AuditConfig{
		StoreBackend: config.StoreBackend(c.String("store")),
		DataDir:      c.String("data-dir"),
		RedisAddress: c.String("redis-address"),
		RedisDB:      c.Int("redis-db"),
		Verbose:      c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	zl, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, zl, nil
}

func openStore(cfg *config.AuditConfig, zl *zap.Logger) (store.IAuditStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendBadger:
		return storeBadger.NewBadgerStore(cfg.DataDir, zl)
	case config.StoreBackendRedis:
		return storeRedis.NewRedisStore(&storeRedis.RedisConfig{
			Address: cfg.RedisAddress,
			DB:      cfg.RedisDB,
		}, zl)
	default:
		return storeMemory.NewMemoryStore(), nil
	}
}

func loadEvents(path string) ([]*types.EventRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	var records []*types.EventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse events file: %w", err)
	}
	return records, nil
}

func loadProof(path string) (*anchor.RawProof, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proof file: %w", err)
	}

	var raw anchor.RawProof
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse proof file: %w", err)
	}
	return &raw, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
