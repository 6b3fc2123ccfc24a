package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Usoramara/alive-intelligence-v3/internal/persist"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted self-state",
	Long:  `Reads the last saved self-state snapshot from the database and prints it.`,
	RunE:  showState,
}

func showState(cmd *cobra.Command, args []string) error {
	store, err := persist.Open(cfg.Persist.DatabasePath, persist.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	defer store.Close()

	snap, ok, err := store.LoadState()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no persisted state yet; run \"alive run\" first")
		return nil
	}

	fmt.Printf("self-state (%s)\n", cfg.Persist.DatabasePath)
	for _, d := range types.Dimensions() {
		v := snap.Dim(d)
		fmt.Printf("  %-10s %+.3f  %s\n", d, v, bar(d, v))
	}

	n, err := store.MemoryCount()
	if err == nil {
		fmt.Printf("memories: %d\n", n)
	}
	return nil
}

// bar renders a small text gauge; valence is centered, the rest fill left
// to right.
func bar(d types.Dimension, v float64) string {
	const width = 20
	if d == types.DimValence {
		pos := int((v + 1) / 2 * width)
		if pos < 0 {
			pos = 0
		}
		if pos >= width {
			pos = width - 1
		}
		cells := []rune(strings.Repeat("-", width))
		cells[width/2] = '|'
		cells[pos] = '*'
		return "[" + string(cells) + "]"
	}
	fill := int(v * width)
	if fill < 0 {
		fill = 0
	}
	if fill > width {
		fill = width
	}
	return "[" + strings.Repeat("#", fill) + strings.Repeat("-", width-fill) + "]"
}
