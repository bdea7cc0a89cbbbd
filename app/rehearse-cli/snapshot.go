package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
)

var snapshotKey string

var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or discard the saved rehearsal",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved rehearsal as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st persistence.Store) error {
			return showSnapshot(ctx, cmd.OutOrStdout(), st, snapshotKey)
		})
	},
}

var snapshotClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved rehearsal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st persistence.Store) error {
			if err := st.Delete(ctx, snapshotKey); err != nil {
				return fmt.Errorf("delete snapshot: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("snapshot cleared"))
			return nil
		})
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshot keys (sqlite store only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st persistence.Store) error {
			lister, ok := st.(interface {
				Keys(ctx context.Context) ([]string, error)
			})
			if !ok {
				return fmt.Errorf("store %q cannot list keys", storeKind)
			}
			keys, err := lister.Keys(ctx)
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("no snapshots"))
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(out, k)
			}
			return nil
		})
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotKey, "key", persistence.DefaultKey, "Snapshot slot")
	snapshotCmd.AddCommand(snapshotShowCmd, snapshotClearCmd, snapshotListCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, st persistence.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(ctx, st)
}

func showSnapshot(ctx context.Context, w io.Writer, st persistence.Store, key string) error {
	snap, ok, err := st.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		fmt.Fprintln(w, mutedStyle.Render("no saved rehearsal"))
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}
