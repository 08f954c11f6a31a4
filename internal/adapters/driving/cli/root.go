// Package cli implements the kbsync command-line interface using cobra.
// Commands are thin: they parse arguments, call core services through
// driving ports, and format output. All wiring happens in Bootstrap,
// which main calls before Execute.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbsync/internal/adapters/driven/index/openai"
	"github.com/custodia-labs/kbsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbsync/internal/connectors/filesystem"
	"github.com/custodia-labs/kbsync/internal/connectors/notion"
	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
	"github.com/custodia-labs/kbsync/internal/core/ports/driving"
	"github.com/custodia-labs/kbsync/internal/core/services"
	"github.com/custodia-labs/kbsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Bootstrap wires the real
// implementations; tests inject doubles directly.
var (
	configStore      driven.ConfigStore
	sourceStore      driven.SourceStore
	connectorFactory *services.ConnectorFactory
	syncOrchestrator driving.SyncOrchestrator
	schedulerStore   driven.SchedulerStore
	schedulerConfig  domain.SchedulerConfig

	adminToken string
	adminAddr  string

	// credentialErr remembers why the orchestrator could not be built,
	// so commands that need it can report the actual problem.
	credentialErr error
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "kbsync",
	Short: "Sync knowledge base entries into a vector store index",
	Long: `kbsync synchronises entries from configured sources (Notion
databases, local directories) into an OpenAI vector store, skipping
entries whose content is unchanged and writing sync status back to
the source where its schema allows.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose logging to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Bootstrap wires the production services. Storage failures are fatal;
// missing index credentials are remembered and reported by the commands
// that actually need the index, so "kbsync version" and "kbsync source
// list" work on an unconfigured machine.
func Bootstrap() error {
	cfg, err := file.NewConfigStore(os.Getenv("KBSYNC_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = cfg

	store, err := sqlite.NewStore(os.Getenv("KBSYNC_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	sourceStore = store.SourceStore()
	schedulerStore = store.SchedulerStore()

	factory := services.NewConnectorFactory()
	factory.Register("notion", func(source domain.Source) (driven.Connector, error) {
		return notion.New(withNotionOverrides(source))
	})
	factory.Register("filesystem", func(source domain.Source) (driven.Connector, error) {
		return filesystem.New(source, store.EntryStateStore())
	})
	connectorFactory = factory

	apiKey := firstNonEmpty(os.Getenv("KBSYNC_OPENAI_API_KEY"), configStore.GetString("openai.api_key"))
	if apiKey == "" {
		credentialErr = fmt.Errorf(
			"%w: set KBSYNC_OPENAI_API_KEY or openai.api_key in %s",
			domain.ErrMissingCredentials, cfg.Path())
	} else {
		index, err := openai.NewVectorStore(openai.Config{
			APIKey:        apiKey,
			BaseURL:       configStore.GetString("openai.base_url"),
			VectorStoreID: configStore.GetString("openai.vector_store_id"),
			StoreName:     configStore.GetString("openai.store_name"),
		})
		if err != nil {
			return fmt.Errorf("index client: %w", err)
		}
		syncOrchestrator = services.NewSyncOrchestrator(
			sourceStore, store.SyncStateStore(), factory, index)
	}

	schedulerConfig = loadSchedulerConfig(configStore)
	adminToken = firstNonEmpty(os.Getenv("KBSYNC_ADMIN_TOKEN"), configStore.GetString("admin.token"))
	adminAddr = configStore.GetString("admin.addr")
	if adminAddr == "" {
		adminAddr = ":8787"
	}

	return nil
}

// notionFieldNames are the logical status/metadata fields whose Notion
// property names can be overridden per deployment.
var notionFieldNames = []string{
	"title", "sync_enabled", "tags", "version", "source_url",
	"content_hash", "index_ref", "status", "error", "indexed_at",
}

// withNotionOverrides layers credentials and field mappings onto a
// source's connector config. Precedence, highest first: environment
// (KBSYNC_NOTION_TOKEN, KBSYNC_NOTION_FIELD_*), the source's own
// config, then the config file ([notion] table).
func withNotionOverrides(source domain.Source) domain.Source {
	merged := make(map[string]string, len(source.Config)+len(notionFieldNames)+1)
	for k, v := range source.Config {
		merged[k] = v
	}

	merged["token"] = firstNonEmpty(
		os.Getenv("KBSYNC_NOTION_TOKEN"),
		merged["token"],
		configStore.GetString("notion.token"))

	for _, name := range notionFieldNames {
		key := "field_" + name
		value := firstNonEmpty(
			os.Getenv("KBSYNC_NOTION_FIELD_"+strings.ToUpper(name)),
			merged[key],
			configStore.GetString("notion."+key))
		if value != "" {
			merged[key] = value
		}
	}

	source.Config = merged
	return source
}

// loadSchedulerConfig reads scheduler settings from the config store,
// falling back to the defaults for anything unset.
func loadSchedulerConfig(cfg driven.ConfigStore) domain.SchedulerConfig {
	config := domain.DefaultSchedulerConfig()

	if _, ok := cfg.Get("sync.scheduler_enabled"); ok {
		config.Enabled = cfg.GetBool("sync.scheduler_enabled")
	}

	task := config.TaskConfigs[domain.TaskIDEntrySync]
	if minutes := cfg.GetInt("sync.interval_minutes"); minutes > 0 {
		task.Interval = time.Duration(minutes) * time.Minute
	}
	if _, ok := cfg.Get("sync.enabled"); ok {
		task.Enabled = cfg.GetBool("sync.enabled")
	}
	config.TaskConfigs[domain.TaskIDEntrySync] = task

	return config
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
