package commands

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/54b3r/rolerag/internal/auth"
	"github.com/54b3r/rolerag/internal/embedder"
	"github.com/54b3r/rolerag/internal/index"
	"github.com/54b3r/rolerag/internal/ingestion"
	"github.com/54b3r/rolerag/internal/logging"
)

// NewIngestCmd constructs the `rolerag ingest` command, which builds role
// partitions from the source document tree.
func NewIngestCmd() *cobra.Command {
	var dataDir string
	var vectorDir string
	var roles []string
	var toQdrant bool
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build role partitions from the source document tree",
		Long: `Embed every document under {data-dir}/{role}/ and write the role's partition.

Supported inputs per role directory:
  *.txt, *.md   one document per file
  *.csv         one document per non-empty cell of every text column

Partitions are written as file artifacts to --vector-dir ({role}_index.vec and
{role}_docs.json). With --qdrant (or INDEX_BACKEND=qdrant) they are also
upserted into the Qdrant collection {QDRANT_COLLECTION_PREFIX}{role}.

The embedder is selected by EMBEDDING_PROVIDER and must match the one used by
'rolerag serve'; partitions built with a different model are rejected at load.

Examples:
  rolerag ingest
  rolerag ingest --role engineering --role hr
  EMBEDDING_PROVIDER=openai rolerag ingest --qdrant`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(roles) == 0 {
				roles = auth.DefaultRoles
			}
			for _, r := range roles {
				if !slices.Contains(auth.DefaultRoles, r) {
					return fmt.Errorf("ingest: unknown role %q (valid: %v)", r, auth.DefaultRoles)
				}
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			embedder.WarnIfChatModel(log)
			log.Info("embedder initialised", slog.String("model", emb.Model()))

			if !cmd.Flags().Changed("vector-dir") {
				vectorDir = getEnvOrDefault("VECTOR_DIR", vectorDir)
			}
			if !cmd.Flags().Changed("data-dir") {
				dataDir = getEnvOrDefault("ROLERAG_DATA_DIR", dataDir)
			}
			writers := []ingestion.Writer{ingestion.FileWriter{Dir: vectorDir}}

			if toQdrant || getEnvOrDefault("INDEX_BACKEND", "file") == "qdrant" {
				qcfg := qdrantConfigFromEnv()
				client, err := index.NewQdrantClient(qcfg)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				defer func() { _ = client.Close() }()
				writers = append(writers, index.NewQdrantWriter(client, qcfg))
				log.Info("qdrant writer ready",
					slog.String("host", qcfg.Host),
					slog.Int("port", qcfg.Port),
					slog.String("collection_prefix", qcfg.CollectionPrefix),
				)
			}

			p, err := ingestion.NewPipeline(emb, &ingestion.Config{
				DataDir:      dataDir,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			}, writers...)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.String("data_dir", dataDir), slog.Any("roles", roles))

			reports, err := p.Ingest(ctx, roles, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, r := range reports {
				if r.Documents == 0 {
					fmt.Fprintf(out, "%-12s skipped (no documents)\n", r.Role)
					continue
				}
				fmt.Fprintf(out, "%-12s %d documents\n", r.Role, r.Documents)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "resources/data", "Source tree with one subdirectory per role")
	cmd.Flags().StringVar(&vectorDir, "vector-dir", defaultVectorDir, "Output directory for partition artifacts")
	cmd.Flags().StringArrayVarP(&roles, "role", "r", nil, "Role to build (repeatable; default: all roles)")
	cmd.Flags().BoolVar(&toQdrant, "qdrant", false, "Also upsert partitions into Qdrant")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Split documents longer than this many characters (0 keeps documents whole)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Characters shared by consecutive chunks")

	return cmd
}
