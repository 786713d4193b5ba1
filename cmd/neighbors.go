package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/config"
	"github.com/jfmyers9/riffnet/internal/graph"
	"github.com/jfmyers9/riffnet/internal/identity"
	"github.com/spf13/cobra"
)

var (
	neighborsFile  string
	neighborsType  string
	neighborsWidth int
	neighborsLimit int
)

// neighborsCmd represents the neighbors command
var neighborsCmd = &cobra.Command{
	Use:   "neighbors <artist>",
	Short: "Show the edges leaving an artist",
	Long: `Show the edges leaving an artist in the relationship graph written
by collect, strongest first.

The artist name is matched by its canonical key, so case, spacing and
surrounding punctuation do not matter.

Examples:
  riffnet neighbors "Sleep Token"
  riffnet neighbors spiritbox --type tour
  riffnet neighbors spiritbox --width 24 --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNeighbors,
}

func init() {
	rootCmd.AddCommand(neighborsCmd)

	neighborsCmd.Flags().StringVar(&neighborsFile, "file", "", "Relationship graph path (default: from config)")
	neighborsCmd.Flags().StringVar(&neighborsType, "type", "", "Only show one edge type (similarity, tour, festival)")
	neighborsCmd.Flags().IntVar(&neighborsWidth, "width", 32, "Width of the artist column (0 disables padding)")
	neighborsCmd.Flags().IntVar(&neighborsLimit, "limit", 0, "Maximum number of edges (0 shows all)")
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	path := neighborsFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		path = cfg.Output.Relationships
	}

	typ := artist.RelationType(neighborsType)
	switch typ {
	case "", artist.Similarity, artist.Tour, artist.Festival:
	default:
		return fmt.Errorf("unknown edge type %q", neighborsType)
	}

	rels, err := graph.ReadFile(path)
	if err != nil {
		return err
	}

	key := identity.Key(strings.Join(args, " "))
	edges := graph.Outgoing(rels, key, typ)
	if len(edges) == 0 {
		fmt.Printf("No edges from %q\n", key)
		return nil
	}

	sortEdges(edges)
	if neighborsLimit > 0 && len(edges) > neighborsLimit {
		edges = edges[:neighborsLimit]
	}
	fmt.Print(formatNeighbors(edges, neighborsWidth))
	return nil
}

// sortEdges orders edges by weight, strongest first, then by target
func sortEdges(edges []artist.Relationship) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		return edges[i].Target < edges[j].Target
	})
}

// formatNeighbors renders one line per edge with the target padded to width
func formatNeighbors(edges []artist.Relationship, width int) string {
	var b strings.Builder
	for _, e := range edges {
		fmt.Fprintf(&b, "%s  %-10s %.3f\n", padToWidth(e.Target, width), e.Type, e.Weight)
	}
	return b.String()
}
