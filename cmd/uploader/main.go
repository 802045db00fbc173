package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/catalog"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/config"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/events"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/logging"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/pipeline"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/progress"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/storage"
)

// CLI flags
var (
	directoryFlag string
	ownerFlag     string
	shopFlag      string
	templateFlag  string
	canvasFlag    string
	sizesFlag     string
	digitalFlag   bool
	localFlag     bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "uploader",
	Short: "Bulk design image upload with duplicate detection",
	Long: `Uploader pushes a directory of design images through the bulk upload
workflow: images are normalized, near-duplicates are filtered by
perceptual hash, survivors are stored and recorded in the design
catalog, and a completion event is published for mockup generation.

Examples:
  uploader --directory ./designs --owner 2f4d… --template "UVDTF 16oz"
  uploader -d ./batch42 -o 2f4d… -t "Tee Front" --shop 88a1… --sizes "S,M,L"
  uploader -d ./clipart -o 2f4d… -t "Clipart Pack" --digital --local`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&directoryFlag, "directory", "d", "", "Directory containing design images to upload")
	rootCmd.Flags().StringVarP(&ownerFlag, "owner", "o", "", "Owner (user) ID the designs belong to")
	rootCmd.Flags().StringVar(&shopFlag, "shop", "", "Shop ID scoping duplicate detection (defaults to the owner)")
	rootCmd.Flags().StringVarP(&templateFlag, "template", "t", "", "Product template name, e.g. 'UVDTF 16oz'")
	rootCmd.Flags().StringVar(&canvasFlag, "canvas", "", "Canvas configuration ID to attach to each design")
	rootCmd.Flags().StringVar(&sizesFlag, "sizes", "", "Comma-separated size IDs to attach to each design")
	rootCmd.Flags().BoolVar(&digitalFlag, "digital", false, "Treat the upload as a digital product and pack a delivery bundle")
	rootCmd.Flags().BoolVar(&localFlag, "local", false, "Run against local disk and an in-memory catalog instead of AWS")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if directoryFlag == "" {
		log.Fatal().Msg("--directory is required")
	}
	if ownerFlag == "" {
		log.Fatal().Msg("--owner is required")
	}
	if templateFlag == "" {
		log.Fatal().Msg("--template is required")
	}

	info, err := os.Stat(directoryFlag)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatal().Str("path", directoryFlag).Msg("Directory not found")
		}
		log.Fatal().Err(err).Str("path", directoryFlag).Msg("Failed to access directory")
	}
	if !info.IsDir() {
		log.Fatal().Str("path", directoryFlag).Msg("Path is not a directory")
	}

	files, err := collectFiles(directoryFlag)
	if err != nil {
		log.Fatal().Err(err).Str("path", directoryFlag).Msg("Failed to read directory")
	}
	if len(files) == 0 {
		log.Fatal().Str("path", directoryFlag).Msg("No supported images found in directory")
	}

	ctx := context.Background()
	cat, blobs, pub := buildBackends(ctx, cfg)

	reporter := progress.NewReporter()
	p := pipeline.New(cfg, cat, blobs, pub, reporter)

	req := &pipeline.Request{
		SessionID: uuid.NewString(),
		OwnerID:   ownerFlag,
		ShopID:    shopFlag,
		Metadata: pipeline.UploadMetadata{
			TemplateName: templateFlag,
			CanvasID:     canvasFlag,
			SizeIDs:      splitSizes(sizesFlag),
			IsDigital:    digitalFlag,
		},
		Files: files,
	}

	// Display header
	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("📁 Bulk Design Upload")
	fmt.Println("============================================")
	fmt.Printf("Directory: %s\n", directoryFlag)
	fmt.Printf("Template:  %s\n", templateFlag)
	fmt.Printf("Files:     %d\n", len(files))
	for i, f := range files {
		fmt.Printf("   %2d. %s (%.1f MB)\n", i+1, f.Filename, float64(len(f.Data))/(1024*1024))
	}
	fmt.Println("--------------------------------------------")
	fmt.Println("⏳ Uploading designs...")
	fmt.Println()

	reporter.StartSession(req.SessionID, 0)
	stopProgress := watchProgress(reporter, req.SessionID)

	res, err := p.Run(ctx, req)
	stopProgress()

	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			log.Fatal().Err(err).Msg("Upload request rejected")
		}
		log.Error().Err(err).Msg("Upload session failed")
	}
	if res == nil {
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("✅ Upload Complete!")
	fmt.Println("============================================")
	fmt.Printf("Session:    %s\n", res.SessionID)
	fmt.Printf("Status:     %s (%s mode)\n", res.Status, res.Mode)
	fmt.Printf("Accepted:   %d\n", res.Accepted)
	fmt.Printf("Duplicates: %d\n", res.Duplicates)
	fmt.Printf("Failed:     %d\n", res.Failed)
	if res.Skipped > 0 {
		fmt.Printf("Skipped:    %d\n", res.Skipped)
	}
	if res.BundlePath != "" {
		fmt.Printf("Bundle:     %s\n", res.BundlePath)
	}
	fmt.Printf("Elapsed:    %s\n", res.Elapsed.Round(time.Millisecond))

	for _, fr := range res.FileResults {
		switch fr.Outcome {
		case pipeline.OutcomeDuplicate:
			if fr.DuplicateOf != "" {
				fmt.Printf("   ~ %s duplicates design %s\n", fr.Filename, fr.DuplicateOf)
			} else {
				fmt.Printf("   ~ %s already in catalog\n", fr.Filename)
			}
		case pipeline.OutcomeError:
			fmt.Printf("   ✗ %s: %s\n", fr.Filename, fr.Error)
		case pipeline.OutcomeSkipped:
			fmt.Printf("   - %s skipped\n", fr.Filename)
		}
	}

	if res.Status != pipeline.StatusCompleted {
		os.Exit(1)
	}
}

// watchProgress prints the session's progress stream until it ends.
// The returned stop function closes the subscription and waits for the
// printer. A run rejected before it reaches the reporter never closes
// the stream itself, so stop must always be called.
func watchProgress(rep *progress.Reporter, sessionID string) (stop func()) {
	ch, cancel := rep.Subscribe(sessionID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			fmt.Printf("   [%3.0f%%] %s: %s\n", ev.PercentComplete, ev.Step, ev.Message)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// buildBackends wires the storage, catalog, and event backends. Local
// mode keeps everything on this machine for dry runs and development.
func buildBackends(ctx context.Context, cfg *config.Config) (catalog.Store, storage.BlobStore, events.Publisher) {
	if localFlag {
		log.Info().Str("root", cfg.StorageRoot).Msg("Running in local mode")
		return catalog.NewMemoryStore(), storage.NewLocalStore(cfg.StorageRoot), events.NopPublisher{}
	}

	if cfg.StorageBucket == "" {
		log.Fatal().Msg("UPLOAD_STORAGE_BUCKET must be set (or use --local)")
	}
	if cfg.CatalogTable == "" {
		log.Fatal().Msg("UPLOAD_CATALOG_TABLE must be set (or use --local)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}

	cat := catalog.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.CatalogTable)
	blobs := storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.StorageBucket)

	var pub events.Publisher = events.NopPublisher{}
	if cfg.EventBus != "" {
		pub = events.NewBridgePublisher(eventbridge.NewFromConfig(awsCfg), cfg.EventBus)
	}
	return cat, blobs, pub
}

// collectFiles reads the directory's image files into upload entries,
// sorted by name so the manifest order is stable across runs.
func collectFiles(dir string) ([]pipeline.FileUpload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []pipeline.FileUpload
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contentType, ok := imageContentType(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		files = append(files, pipeline.FileUpload{
			Filename:    entry.Name(),
			ContentType: contentType,
			Data:        data,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

func imageContentType(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".gif":
		return "image/gif", true
	case ".webp":
		return "image/webp", true
	}
	return "", false
}

func splitSizes(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
