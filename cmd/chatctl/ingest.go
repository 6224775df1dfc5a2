package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/wolfman30/supportchat/cmd/mainconfig"
	"github.com/wolfman30/supportchat/internal/app/bootstrap"
	"github.com/wolfman30/supportchat/internal/knowledge"
)

type ingestOptions struct {
	dir       string
	s3Bucket  string
	s3Prefix  string
	urls      []string
	chunkSize int
	overlap   int
	timeout   time.Duration
}

func (o ingestOptions) empty() bool {
	return o.dir == "" && o.s3Bucket == "" && len(o.urls) == 0
}

func newIngestCmd(g *globals) *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Split documents and add them to the knowledge store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.empty() {
				return errors.New("nothing to ingest: pass --dir, --s3-bucket or --url")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			logger := g.logger()

			var awsCfg *aws.Config
			if opts.s3Bucket != "" || g.cfg.EmbeddingProvider == "bedrock" {
				loaded, err := mainconfig.LoadAWSConfig(ctx, g.cfg)
				if err != nil {
					return fmt.Errorf("load aws config: %w", err)
				}
				awsCfg = &loaded
			}

			embedder, err := bootstrap.BuildEmbedder(g.cfg, awsCfg)
			if err != nil {
				return err
			}
			index, closer, err := bootstrap.BuildKnowledgeIndex(g.cfg, embedder, logger)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			var sources []knowledge.Source
			if opts.dir != "" {
				sources = append(sources, knowledge.DirSource{Dir: opts.dir, Logger: logger})
			}
			if opts.s3Bucket != "" {
				sources = append(sources, knowledge.S3Source{
					Client: s3.NewFromConfig(*awsCfg),
					Bucket: opts.s3Bucket,
					Prefix: opts.s3Prefix,
					Logger: logger,
				})
			}
			if len(opts.urls) > 0 {
				sources = append(sources, knowledge.WebSource{URLs: opts.urls})
			}

			ingestor := knowledge.NewIngestor(index, knowledge.NewSplitter(opts.chunkSize, opts.overlap), logger)
			n, err := ingestor.IngestSources(ctx, sources...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunks into %s\n", n, g.cfg.KnowledgeBackend)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory of .txt, .md and .jsonl files")
	cmd.Flags().StringVar(&opts.s3Bucket, "s3-bucket", "", "S3 bucket to read documents from")
	cmd.Flags().StringVar(&opts.s3Prefix, "s3-prefix", "", "key prefix within --s3-bucket")
	cmd.Flags().StringSliceVar(&opts.urls, "url", nil, "web page to fetch (repeatable)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", knowledge.DefaultChunkSize, "chunk size in characters")
	cmd.Flags().IntVar(&opts.overlap, "chunk-overlap", knowledge.DefaultChunkOverlap, "overlap between chunks in characters")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall ingest timeout")
	return cmd
}
