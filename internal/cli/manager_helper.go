package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dvalin-labs/romgraph/internal/config"
	"github.com/dvalin-labs/romgraph/internal/rom"
	"github.com/dvalin-labs/romgraph/internal/storage"
	"github.com/dvalin-labs/romgraph/internal/store"
)

// Style definitions shared across commands.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(14)
	hashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"})
	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"})
)

// openManager loads the configuration and opens the storage manager. A
// data-revision wipe is reported on stderr before the command runs.
func openManager(cmd *cobra.Command) (*storage.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	m, notice, err := storage.Open(cfg.DBPath(), cfg.DiffsDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if notice != nil && notice.Wiped {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render(revisionWarning(notice)))
	}
	return m, cfg, nil
}

func revisionWarning(n *store.RevisionNotice) string {
	if n.Stored < 0 {
		return fmt.Sprintf("Warning: store predates data revision tracking; wiped and reinitialized at revision %d.", n.Current)
	}
	return fmt.Sprintf("Warning: store used data revision %d but this build expects %d; wiped and reinitialized.", n.Stored, n.Current)
}

func printKV(cmd *cobra.Command, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", labelStyle.Render(label), value)
}

func shortHash(cfg *config.Config, hash string) string {
	return rom.ShortHash(hash, cfg.Display.HashLength)
}

// metaFlags collects the user-editable metadata flags shared by add,
// link, and edit.
type metaFlags struct {
	title       string
	sourceURL   string
	version     string
	releaseDate string
	tags        string
	description string
}

func (f *metaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "display title")
	cmd.Flags().StringVar(&f.sourceURL, "source-url", "", "where the file came from")
	cmd.Flags().StringVar(&f.version, "version", "", "version label")
	cmd.Flags().StringVar(&f.releaseDate, "release-date", "", "release date")
	cmd.Flags().StringVar(&f.tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form description")
}

func (f *metaFlags) metadata() store.Metadata {
	var tags []string
	for _, tag := range strings.Split(f.tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return store.Metadata{
		Title:       f.title,
		SourceURL:   f.sourceURL,
		Version:     f.version,
		ReleaseDate: f.releaseDate,
		Tags:        tags,
		Description: f.description,
	}
}

// nodeLabel picks the friendliest name available for a node.
func nodeLabel(n *store.Node) string {
	switch {
	case n.Title != "":
		return n.Title
	case n.Filename != "":
		return n.Filename
	default:
		return "(untitled)"
	}
}
