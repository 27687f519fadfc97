package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/apportion"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

// apportionCommand creates the apportion command: distribute house
// seats among state populations by the method of equal proportions.
func (c *CLI) apportionCommand() *cobra.Command {
	var (
		house       int
		populations string
	)

	cmd := &cobra.Command{
		Use:   "apportion",
		Short: "Compute Huntington-Hill seat apportionment",
		Long: `Compute Huntington-Hill seat apportionment.

Distributes house seats among state populations using the method of
equal proportions, the method used for the U.S. House since 1941. The
bundled 2020 apportionment populations are used unless --populations
points at a CSV of state,population rows.

Examples:
  wardline apportion
  wardline apportion --house 600
  wardline apportion --populations states.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runApportion(house, populations)
		},
	}

	cmd.Flags().IntVar(&house, "house", apportion.HouseSize, "total seats to distribute")
	cmd.Flags().StringVar(&populations, "populations", "", "CSV of state,population rows (default: bundled 2020 data)")

	return cmd
}

func (c *CLI) runApportion(house int, populationsPath string) error {
	pops := apportion.Populations2020
	source := "bundled 2020 apportionment populations"
	if populationsPath != "" {
		var err error
		pops, err = readPopulations(populationsPath)
		if err != nil {
			return err
		}
		source = populationsPath
	}

	seats, err := apportion.Calculate(pops, house)
	if err != nil {
		return err
	}

	fmt.Println(apportionTable(pops, seats))
	printDetail("%d seats across %d states · %s", house, len(pops), source)
	return nil
}

// readPopulations loads a state,population CSV. The first column is a
// state FIPS code or label, the second a population count. A header
// row is skipped when its population field is not numeric.
func readPopulations(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err,
			"open populations file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	pops := make(map[string]int64)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "read %s", path)
		}
		line++

		pop, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
				"%s line %d: population %q is not a number", path, line, rec[1])
		}

		key := strings.TrimSpace(rec[0])
		if key == "" {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
				"%s line %d: empty state", path, line)
		}
		pops[key] = pop
	}

	if len(pops) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"%s contains no population rows", path)
	}
	return pops, nil
}

// apportionTable renders the seat distribution sorted by state name.
func apportionTable(pops map[string]int64, seats map[string]int) string {
	type row struct {
		fips  string
		name  string
		pop   int64
		seats int
	}

	rows := make([]row, 0, len(pops))
	for key, pop := range pops {
		r := row{name: key, pop: pop, seats: seats[key]}
		if st, ok := apportion.StateByFIPS(key); ok {
			r.fips = key
			r.name = st.Name
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.fips, r.name, formatPop(r.pop), strconv.Itoa(r.seats)}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("FIPS", "State", "Population", "Seats").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			switch col {
			case 0:
				return lipgloss.NewStyle().Foreground(colorDim)
			case 3:
				return lipgloss.NewStyle().Foreground(colorCyan)
			default:
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
		}).
		Render()
}
