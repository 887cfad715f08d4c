// Package report builds terminal summaries of campaign results: a markdown
// document over the indicator statistics, target hits and sequence tallies,
// and a glamour renderer for styled output.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
)

// maxSequences bounds the sequence table; campaigns with many distinct
// paths list only the most frequent ones.
const maxSequences = 10

// Markdown builds the campaign summary as a markdown document: the campaign
// header, one statistics table per indicator series, target hit counts and
// the most frequent monitored transition sequences.
func Markdown(c *results.Campaign) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Campaign %s\n\n", c.System)
	fmt.Fprintf(&sb, "- ID: `%s`\n", c.ID)
	fmt.Fprintf(&sb, "- Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Runs: %d\n", c.NbRuns())
	fmt.Fprintf(&sb, "- Horizon: %g\n", c.Config.Horizon())
	fmt.Fprintf(&sb, "- Seed: %d\n", c.Config.Seed)

	writeIndicators(&sb, c)
	writeTargets(&sb, c)
	writeSequences(&sb, c)

	return sb.String()
}

func writeIndicators(sb *strings.Builder, c *results.Campaign) {
	names := c.IndicatorNames()
	if len(names) == 0 {
		return
	}
	sb.WriteString("\n## Indicators\n")
	for _, name := range names {
		ind, err := c.Indicator(name)
		if err != nil {
			continue
		}
		byStat := make(map[domain.Stat][]results.Series, len(ind.Stats))
		for _, stat := range ind.Stats {
			series, err := ind.Stat(stat)
			if err != nil {
				continue
			}
			byStat[stat] = series
		}
		for pi, key := range ind.Keys() {
			fmt.Fprintf(sb, "\n### %s (%s)\n\n", name, key)
			sb.WriteString("| t |")
			for _, stat := range ind.Stats {
				fmt.Fprintf(sb, " %s |", stat)
			}
			sb.WriteString("\n|---|")
			for range ind.Stats {
				sb.WriteString("---|")
			}
			sb.WriteString("\n")
			for i, at := range ind.Times {
				fmt.Fprintf(sb, "| %g |", at)
				for _, stat := range ind.Stats {
					fmt.Fprintf(sb, " %.4f |", byStat[stat][pi].Samples[i].Value)
				}
				sb.WriteString("\n")
			}
		}
	}
}

func writeTargets(sb *strings.Builder, c *results.Campaign) {
	hits := c.TargetHits()
	if len(hits) == 0 {
		return
	}
	names := make([]string, 0, len(hits))
	for name := range hits {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("\n## Targets\n\n")
	sb.WriteString("| target | hits | share |\n|---|---|---|\n")
	runs := len(c.Runs)
	for _, name := range names {
		share := 0.0
		if runs > 0 {
			share = float64(hits[name]) / float64(runs) * 100
		}
		fmt.Fprintf(sb, "| %s | %d/%d | %.1f%% |\n", name, hits[name], runs, share)
	}
}

func writeSequences(sb *strings.Builder, c *results.Campaign) {
	tallies := c.SequenceTallies()
	if len(tallies) == 0 {
		return
	}
	// A single all-empty tally means nothing was monitored.
	if len(tallies) == 1 && len(tallies[0].Transitions) == 0 {
		return
	}
	sb.WriteString("\n## Sequences\n\n")
	sb.WriteString("| count | transitions |\n|---|---|\n")
	shown := tallies
	if len(shown) > maxSequences {
		shown = shown[:maxSequences]
	}
	for _, tally := range shown {
		path := strings.Join(tally.Transitions, " -> ")
		if path == "" {
			path = "(no monitored transitions)"
		}
		fmt.Fprintf(sb, "| %d | %s |\n", tally.Count, path)
	}
	if rest := len(tallies) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "\nand %d more distinct sequences\n", rest)
	}
}
