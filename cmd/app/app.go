package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jchangwan/campus-closet-share/internal/app"
	config "github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/spf13/cobra"
)

//	@title			Campus Closet Share AI API
//	@version		1.0
//	@description	Поиск похожих товаров каталога по изображению.
//	@BasePath		/

func main() {
	log := logger.NewSlogLogger()

	rootCmd := &cobra.Command{
		Use:           "campus-closet-share",
		Short:         "Image similarity recommendation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(log)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP (and optional gRPC) API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(log)
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load the index and the catalog mapping and check that they match 1:1",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}

			report, err := app.Inspect(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			report.Print(cmd.OutOrStdout())
			if !report.Consistent() {
				return fmt.Errorf("artifacts are missing or inconsistent")
			}
			return nil
		},
	}

	syncQdrantCmd := &cobra.Command{
		Use:   "sync-qdrant",
		Short: "Upload the flat index from INDEX_PATH with catalog payloads into Qdrant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}

			written, err := app.SyncQdrant(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d points written to %s\n", written, cfg.Qdrant.QdrantCollectionName)
			return nil
		},
	}

	var mappingFile string
	importCatalogCmd := &cobra.Command{
		Use:   "import-catalog",
		Short: "Import a JSON catalog mapping into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}

			if mappingFile == "" {
				mappingFile = cfg.Artifacts.MappingPath
			}

			changed, err := app.ImportCatalog(cmd.Context(), cfg, log, mappingFile)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d catalog rows changed\n", changed)
			return nil
		},
	}
	importCatalogCmd.Flags().StringVar(&mappingFile, "file", "", "Mapping file (defaults to MAPPING_PATH)")

	publishCmd := &cobra.Command{
		Use:   "publish-artifacts",
		Short: "Upload local mapping and index files into ARTIFACTS_BUCKET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}

			uploaded, err := app.PublishArtifacts(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) uploaded to %s\n", uploaded, cfg.Artifacts.Bucket)
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, inspectCmd, syncQdrantCmd, importCatalogCmd, publishCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Errorf(err, "command failed")
		os.Exit(1)
	}
}

// serve запускает сервис. Сигналы остановки обрабатывает сам App.
func serve(log logger.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		return err
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		return err
	}

	return application.Run()
}
