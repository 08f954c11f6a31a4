package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage content sources",
}

var (
	sourceAddID     string
	sourceAddName   string
	sourceAddConfig []string
)

var sourceAddCmd = &cobra.Command{
	Use:   "add [connector-type]",
	Short: "Add a content source",
	Long: `Adds a source of the given connector type. Connector-specific
settings are passed as repeated --config key=value flags, e.g.

  kbsync source add notion --config database_ids=abc123
  kbsync source add filesystem --config root=/srv/knowledge`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourceList,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove [source-id]",
	Short: "Remove a content source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

func init() {
	sourceAddCmd.Flags().StringVar(&sourceAddID, "id", "", "source ID (generated if empty)")
	sourceAddCmd.Flags().StringVar(&sourceAddName, "name", "", "human-readable name")
	sourceAddCmd.Flags().StringArrayVar(&sourceAddConfig, "config", nil,
		"connector setting as key=value (repeatable)")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if sourceStore == nil || connectorFactory == nil {
		return errors.New("source service not configured")
	}
	if len(args) == 0 {
		return fmt.Errorf("connector type required (one of: %s)",
			strings.Join(connectorFactory.SupportedTypes(), ", "))
	}

	connectorType := args[0]
	config, err := parseConfigFlags(sourceAddConfig)
	if err != nil {
		return err
	}

	source := domain.Source{
		ID:     sourceAddID,
		Type:   connectorType,
		Name:   sourceAddName,
		Config: config,
	}
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if source.Name == "" {
		source.Name = connectorType
	}

	ctx := context.Background()

	// Build and validate the connector before persisting anything, so
	// a typo'd database id or missing token is caught at add time.
	connector, err := connectorFactory.Create(ctx, source)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	if err := connector.Validate(ctx); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}

	if err := sourceStore.Save(ctx, source); err != nil {
		return fmt.Errorf("save source: %w", err)
	}

	cmd.Printf("Added source: %s (%s)\n", source.ID, source.Type)
	return nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if sourceStore == nil {
		return errors.New("source service not configured")
	}

	sources, err := sourceStore.List(context.Background())
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	cmd.Println("Configured sources:")
	if len(sources) == 0 {
		cmd.Println("  (none)")
		return nil
	}
	for _, source := range sources {
		cmd.Printf("  %s  %-12s %s\n", source.ID, source.Type, source.Name)
	}
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if sourceStore == nil {
		return errors.New("source service not configured")
	}

	sourceID := args[0]
	if err := sourceStore.Delete(context.Background(), sourceID); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}

	cmd.Printf("Removed source: %s\n", sourceID)
	return nil
}

// parseConfigFlags turns repeated key=value flags into a config map.
func parseConfigFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	config := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: config flag %q is not key=value",
				domain.ErrInvalidInput, pair)
		}
		config[key] = value
	}
	return config, nil
}
